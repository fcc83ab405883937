// Package config 定义 sbs-go 进程的配置结构，并负责默认值、加载与校验。
package config

import (
	"time"

	"github.com/lk2023060901/sbs-go/pkg/log"
	"github.com/lk2023060901/sbs-go/pkg/sbs"
	"github.com/lk2023060901/sbs-go/pkg/util/merr"
	"github.com/lk2023060901/sbs-go/pkg/util/viper"
)

const (
	DefaultAddress      = "127.0.0.1:7300"
	DefaultMaxFrameSize = 4 << 20
	DefaultDialAttempts = 5
	DefaultDialTimeout  = 3 * time.Second
	DefaultIdleTimeout  = 2 * time.Minute
	DefaultWSPath       = "/sbs"
)

// SbsConfig 对应配置文件中的 sbs 段。
type SbsConfig struct {
	// ByteOrder 为线上字节序：little、big 或 native。
	ByteOrder string `mapstructure:"byte_order" json:"byte_order"`
	// Strict 为 true 时解码后存在剩余字节视为错误。
	Strict bool `mapstructure:"strict" json:"strict"`
	// FileBufferSize 为文件通道缓冲区大小，单位字节。
	FileBufferSize int `mapstructure:"file_buffer_size" json:"file_buffer_size"`
}

// TransportConfig 对应配置文件中的 transport 段。
type TransportConfig struct {
	Address string `mapstructure:"address" json:"address"`
	// MaxFrameSize 为单条记录负载的上限，单位字节。
	MaxFrameSize uint32 `mapstructure:"max_frame_size" json:"max_frame_size"`
	// DialAttempts 为客户端建连的最大尝试次数。
	DialAttempts uint          `mapstructure:"dial_attempts" json:"dial_attempts"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout" json:"dial_timeout"`
	// IdleTimeout 为连接上两条记录之间允许的最长间隔，0 表示不限制。
	IdleTimeout time.Duration `mapstructure:"idle_timeout" json:"idle_timeout"`
	// PoolSize 为服务端处理连接的协程池容量，0 表示使用默认容量 1024。
	PoolSize int `mapstructure:"pool_size" json:"pool_size"`
	// WSPath 为 WebSocket 传输挂载的 HTTP 路径。
	WSPath string `mapstructure:"ws_path" json:"ws_path"`
}

// Config 为进程级配置。
type Config struct {
	Sbs       SbsConfig             `mapstructure:"sbs" json:"sbs"`
	Transport TransportConfig       `mapstructure:"transport" json:"transport"`
	Logging   map[string]log.Config `mapstructure:"logging" json:"logging"`
}

// Default 返回填充了默认值的配置。
func Default() *Config {
	return &Config{
		Sbs: SbsConfig{
			ByteOrder:      sbs.LittleEndian.String(),
			FileBufferSize: sbs.DefaultFileBufferSize,
		},
		Transport: TransportConfig{
			Address:      DefaultAddress,
			MaxFrameSize: DefaultMaxFrameSize,
			DialAttempts: DefaultDialAttempts,
			DialTimeout:  DefaultDialTimeout,
			IdleTimeout:  DefaultIdleTimeout,
			WSPath:       DefaultWSPath,
		},
	}
}

// Load 在默认值的基础上合并 v 中的配置并校验。
func Load(v *viper.Config) (*Config, error) {
	cfg := Default()
	if v != nil {
		if err := v.Unmarshal(cfg); err != nil {
			return nil, merr.WrapErrParameterInvalidMsg("unmarshal config: %s", err.Error())
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile 读取 path 指向的 YAML/JSON 文件并调用 Load。
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	if err := v.LoadFile(path); err != nil {
		return nil, merr.WrapErrIoFailed(path, err)
	}
	return Load(v)
}

// Validate 校验配置的取值范围。
func (c *Config) Validate() error {
	if _, err := sbs.ParseByteOrder(c.Sbs.ByteOrder); err != nil {
		return err
	}
	if c.Sbs.FileBufferSize < 0 {
		return merr.WrapErrParameterInvalidMsg("sbs.file_buffer_size must be non-negative, got %d", c.Sbs.FileBufferSize)
	}
	t := c.Transport
	if t.Address == "" {
		return merr.WrapErrParameterMissing("transport.address")
	}
	if t.MaxFrameSize == 0 {
		return merr.WrapErrParameterInvalidMsg("transport.max_frame_size must be positive")
	}
	if t.DialAttempts == 0 {
		return merr.WrapErrParameterInvalidMsg("transport.dial_attempts must be positive")
	}
	if t.DialTimeout < 0 || t.IdleTimeout < 0 {
		return merr.WrapErrParameterInvalidMsg("negative timeout: dial=%s idle=%s", t.DialTimeout, t.IdleTimeout)
	}
	if t.PoolSize < 0 {
		return merr.WrapErrParameterInvalidMsg("transport.pool_size must be non-negative, got %d", t.PoolSize)
	}
	return nil
}

// Options 将 sbs 段转换为驱动函数的选项。
func (c SbsConfig) Options() ([]sbs.Option, error) {
	order, err := sbs.ParseByteOrder(c.ByteOrder)
	if err != nil {
		return nil, err
	}
	opts := []sbs.Option{sbs.WithByteOrder(order)}
	if c.Strict {
		opts = append(opts, sbs.WithStrict())
	}
	if c.FileBufferSize > 0 {
		opts = append(opts, sbs.WithFileBufferSize(c.FileBufferSize))
	}
	return opts, nil
}
