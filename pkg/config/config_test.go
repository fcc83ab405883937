package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/lk2023060901/sbs-go/pkg/sbs"
	"github.com/lk2023060901/sbs-go/pkg/util/merr"
	"github.com/lk2023060901/sbs-go/pkg/util/viper"
)

const sampleYAML = `
sbs:
  byte_order: big
  strict: true
  file_buffer_size: 4096
transport:
  address: 127.0.0.1:9000
  max_frame_size: 1024
  dial_timeout: 500ms
  pool_size: 4
logging:
  transport:
    level: debug
    stdout: true
`

type ConfigSuite struct {
	suite.Suite
}

func (s *ConfigSuite) load(text string) (*Config, error) {
	v := viper.New()
	s.Require().NoError(v.LoadReader(strings.NewReader(text), "yaml"))
	return Load(v)
}

func (s *ConfigSuite) TestDefault() {
	cfg, err := Load(nil)
	s.Require().NoError(err)
	s.Equal("little", cfg.Sbs.ByteOrder)
	s.Equal(sbs.DefaultFileBufferSize, cfg.Sbs.FileBufferSize)
	s.Equal(DefaultAddress, cfg.Transport.Address)
	s.EqualValues(DefaultMaxFrameSize, cfg.Transport.MaxFrameSize)
	s.EqualValues(DefaultDialAttempts, cfg.Transport.DialAttempts)
	s.Equal(DefaultWSPath, cfg.Transport.WSPath)
}

func (s *ConfigSuite) TestOverrides() {
	cfg, err := s.load(sampleYAML)
	s.Require().NoError(err)

	s.Equal("big", cfg.Sbs.ByteOrder)
	s.True(cfg.Sbs.Strict)
	s.Equal(4096, cfg.Sbs.FileBufferSize)
	s.Equal("127.0.0.1:9000", cfg.Transport.Address)
	s.EqualValues(1024, cfg.Transport.MaxFrameSize)
	s.Equal(500*time.Millisecond, cfg.Transport.DialTimeout)
	s.Equal(4, cfg.Transport.PoolSize)
	// 未出现的键保留默认值。
	s.EqualValues(DefaultDialAttempts, cfg.Transport.DialAttempts)
	s.Equal(DefaultIdleTimeout, cfg.Transport.IdleTimeout)

	s.Require().Contains(cfg.Logging, "transport")
	s.Equal("debug", cfg.Logging["transport"].Level)
	s.True(cfg.Logging["transport"].Stdout)
}

func (s *ConfigSuite) TestOptions() {
	cfg, err := s.load(sampleYAML)
	s.Require().NoError(err)

	opts, err := cfg.Sbs.Options()
	s.Require().NoError(err)
	s.Len(opts, 3)

	type rec struct{ V uint16 }
	fn := func(ar *sbs.Archive, r *rec) error { return sbs.Value(ar, &r.V) }
	data, err := sbs.MarshalFunc(&rec{V: 0x0102}, fn, opts...)
	s.Require().NoError(err)
	s.Equal([]byte{0x01, 0x02}, data)

	var out rec
	err = sbs.UnmarshalFunc(append(data, 0), &out, fn, opts...)
	s.ErrorIs(err, merr.ErrTrailingBytes)
}

func (s *ConfigSuite) TestValidate() {
	cases := map[string]string{
		"byte order":  "sbs:\n  byte_order: middle\n",
		"buffer size": "sbs:\n  file_buffer_size: -1\n",
		"frame size":  "transport:\n  max_frame_size: 0\n",
		"attempts":    "transport:\n  dial_attempts: 0\n",
		"timeout":     "transport:\n  idle_timeout: -1s\n",
		"pool size":   "transport:\n  pool_size: -2\n",
	}
	for name, text := range cases {
		_, err := s.load(text)
		s.ErrorIs(err, merr.ErrParameterInvalid, name)
	}

	_, err := s.load("transport:\n  address: \"\"\n")
	s.ErrorIs(err, merr.ErrParameterMissing)
}

func (s *ConfigSuite) TestLoadFile() {
	path := filepath.Join(s.T().TempDir(), "sbs.yaml")
	s.Require().NoError(os.WriteFile(path, []byte(sampleYAML), 0o600))
	cfg, err := LoadFile(path)
	s.Require().NoError(err)
	s.Equal("big", cfg.Sbs.ByteOrder)

	_, err = LoadFile(filepath.Join(s.T().TempDir(), "missing.yaml"))
	s.ErrorIs(err, merr.ErrIoFailed)
}

func TestConfig(t *testing.T) {
	suite.Run(t, new(ConfigSuite))
}
