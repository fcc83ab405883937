package application

import (
	"os"
	"strings"

	env "github.com/caarlos0/env/v11"
	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/sbs-go/pkg/config"
	zlog "github.com/lk2023060901/sbs-go/pkg/log"
	"github.com/lk2023060901/sbs-go/pkg/sbs"
	"github.com/lk2023060901/sbs-go/pkg/util/merr"
)

const defaultConfigPath = "./config.yaml"

// logEnv 对应 SBS_LOG_* 环境变量。
type logEnv struct {
	Enable  bool   `env:"ENABLE" envDefault:"false"`
	Level   string `env:"LEVEL" envDefault:"info"`
	Format  string `env:"FORMAT" envDefault:"text"`
	Stdout  bool   `env:"STDOUT" envDefault:"false"`
	FileDir string `env:"FILE_DIR"`
	File    string `env:"FILE"`
}

// processEnv 对应 SBS_* 环境变量。
type processEnv struct {
	ConfigPath string `env:"CONFIG_FILE_PATH"`
	Log        logEnv `envPrefix:"LOG_"`
}

// Application 是 sbs-go 进程的运行时容器，持有配置与模块级 Logger。
type Application struct {
	cfg     *config.Config
	loggers map[string]*zlog.MLogger
}

// New 创建一个新的 Application。
func New() *Application {
	return &Application{}
}

// Run 是应用入口，解析命令行参数（os.Args）并按以下优先级确定配置文件：
//  1. 默认：./config.yaml，不存在时使用内置默认配置
//  2. 环境变量：SBS_CONFIG_FILE_PATH
//  3. 命令行：--config <path> 或 --config=<path>
func (a *Application) Run() error {
	return a.run(os.Args[1:])
}

func (a *Application) run(args []string) error {
	var penv processEnv
	if err := env.ParseWithOptions(&penv, env.Options{Prefix: "SBS_"}); err != nil {
		return merr.WrapErrParameterInvalidMsg("parse environment: %s", err.Error())
	}

	cfg, err := a.loadConfig(penv.ConfigPath, args)
	if err != nil {
		return err
	}
	a.cfg = cfg

	if err := a.initGlobalLogger(penv.Log); err != nil {
		return err
	}
	if err := a.initModuleLoggers(); err != nil {
		return err
	}

	order, _ := sbs.ParseByteOrder(cfg.Sbs.ByteOrder)
	zlog.Info("application started",
		zlog.FieldModule("application"),
		zlog.FieldByteOrder(order))
	return nil
}

// Config 返回已加载的配置。
func (a *Application) Config() *config.Config {
	return a.cfg
}

// SbsOptions 返回由配置 sbs 段生成的驱动选项。
func (a *Application) SbsOptions() ([]sbs.Option, error) {
	if a.cfg == nil {
		return nil, nil
	}
	return a.cfg.Sbs.Options()
}

// Logger 返回按配置创建的具名 Logger，未知名称回退到全局 Logger。
func (a *Application) Logger(name string) *zlog.MLogger {
	if lg, ok := a.loggers[name]; ok && lg != nil {
		return lg
	}
	return &zlog.MLogger{Logger: zlog.L()}
}

func (a *Application) loadConfig(envPath string, args []string) (*config.Config, error) {
	configPath := defaultConfigPath
	explicit := false
	if envPath != "" {
		configPath, explicit = envPath, true
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--config" {
			if i+1 >= len(args) {
				return nil, merr.WrapErrParameterMissing("--config")
			}
			configPath, explicit = args[i+1], true
			i++
			continue
		}
		if val, ok := strings.CutPrefix(arg, "--config="); ok && val != "" {
			configPath, explicit = val, true
		}
	}

	if !explicit {
		if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
			return config.Load(nil)
		}
	}

	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return nil, errors.Wrapf(err, "load config file %q", configPath)
	}
	return cfg, nil
}

// initGlobalLogger 按 SBS_LOG_* 环境变量配置进程级 Logger。
// SBS_LOG_ENABLE 未开启时所有输出被丢弃。
func (a *Application) initGlobalLogger(e logEnv) error {
	cfg := &zlog.Config{
		Level:               e.Level,
		Format:              e.Format,
		Stdout:              e.Stdout,
		DisableErrorVerbose: true,
		File: zlog.FileLogConfig{
			RootPath: e.FileDir,
			Filename: e.File,
		},
	}
	if !e.Enable {
		cfg.Stdout = false
		cfg.File.Filename = ""
	}

	logger, props, err := zlog.InitLogger(cfg)
	if err != nil {
		return errors.Wrap(err, "init global logger from env")
	}
	zlog.ReplaceGlobals(logger, props)
	return nil
}

// initModuleLoggers 按配置文件 logging 段创建具名 Logger。
//
// 示例：
//
//	logging:
//	  transport:
//	    level: debug
//	    stdout: true
//	    file:
//	      rootpath: ./logs
//	      filename: transport.log
func (a *Application) initModuleLoggers() error {
	if a.cfg == nil || len(a.cfg.Logging) == 0 {
		return nil
	}

	a.loggers = make(map[string]*zlog.MLogger, len(a.cfg.Logging))
	for name, lc := range a.cfg.Logging {
		cfgCopy := lc
		if cfgCopy.Level == "" {
			cfgCopy.Level = "info"
		}
		logger, _, err := zlog.InitLogger(&cfgCopy)
		if err != nil {
			return errors.Wrapf(err, "init module logger %q", name)
		}
		a.loggers[name] = &zlog.MLogger{Logger: logger.With(zlog.FieldModule(name))}
	}
	return nil
}

// Close 刷新并释放 Logger 持有的文件句柄，应在进程退出前调用。
// 标准输出不支持 fsync，Sync 的错误在这里被忽略。
func (a *Application) Close() {
	for _, lg := range a.loggers {
		_ = lg.Sync()
	}
	_ = zlog.Sync()
	zlog.Cleanup()
}
