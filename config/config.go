package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
		Addr string `yaml:"-"` // 不从配置文件读取，而是在加载后计算
	} `yaml:"server"`
	Log struct {
		Level    string `yaml:"level"`
		Format   string `yaml:"format"`
		Output   string `yaml:"output"`
		FilePath string `yaml:"file_path"`
	} `yaml:"log"`

	DB struct {
		Host            string `yaml:"host"`
		Port            int    `yaml:"port"`
		Username        string `yaml:"username"`
		Password        string `yaml:"password"`
		Database        string `yaml:"database"`
		Charset         string `yaml:"charset"`
		ParseTime       bool   `yaml:"parse_time"`
		DSN             string `yaml:"-"`                 // 不从配置文件读取，而是在加载后计算
		MaxOpenConns    int    `yaml:"max_open_conns"`    // 最大打开连接数
		MaxIdleConns    int    `yaml:"max_idle_conns"`    // 最大空闲连接数
		ConnMaxLifetime int    `yaml:"conn_max_lifetime"` // 连接最大生命周期（分钟）
	} `yaml:"database"`
	Redis struct {
		Addr     string `yaml:"addr"` // 为空时使用进程内锁
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		LockTTL  int    `yaml:"lock_ttl_sec"` // 分布式锁过期时间（秒）
	} `yaml:"redis"`
	Recommender struct {
		Python             string `yaml:"python"`
		Script             string `yaml:"script"`
		PersonalizedScript string `yaml:"personalized_script"`
		TimeoutSec         int    `yaml:"timeout_sec"` // 单次外部进程调用超时（秒）
		ScratchDir         string `yaml:"scratch_dir"` // 请求信封临时文件目录
		Breaker            struct {
			MaxRequests  uint32  `yaml:"max_requests"`  // 半开状态允许的请求数
			IntervalSec  int     `yaml:"interval_sec"`  // 关闭状态计数重置周期
			TimeoutSec   int     `yaml:"timeout_sec"`   // 打开状态持续时间
			MinRequests  uint32  `yaml:"min_requests"`  // 触发熔断的最少请求数
			FailureRatio float64 `yaml:"failure_ratio"` // 触发熔断的失败率
		} `yaml:"breaker"`
	} `yaml:"recommender"`
	Dataset struct {
		Dir        string   `yaml:"dir"`         // 数据集快照目录
		ModelsDir  string   `yaml:"models_dir"`  // 推荐模型缓存目录
		ModelFiles []string `yaml:"model_files"` // 每次刷新时删除的模型文件
	} `yaml:"dataset"`
	Auth struct {
		JWTSecret  string `yaml:"jwt_secret"`
		UserHeader string `yaml:"user_header"` // 未配置 JWT 时由网关注入的用户头
	} `yaml:"auth"`
	CORS struct {
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"cors"`
	RateLimit struct {
		AnalyzePerMin int `yaml:"analyze_per_min"` // 每个用户每分钟可发起的分析请求数
	} `yaml:"rate_limit"`
	Timeouts struct {
		RequestSec  int `yaml:"request_sec"`  // 请求超时，单位：秒
		ResponseSec int `yaml:"response_sec"` // 响应超时，单位：秒
		IdleSec     int `yaml:"idle_sec"`     // 空闲超时，单位：秒
	} `yaml:"timeouts"`
	Scheduler struct {
		CheckIntervalSec int `yaml:"check_interval_sec"` // 调度器检查间隔（秒）
		DatasetHour      int `yaml:"dataset_hour"`       // 每天预热数据集的小时（0-23），-1 关闭
		DatasetMinute    int `yaml:"dataset_minute"`     // 每天预热数据集的分钟（0-59）
		SweepIntervalSec int `yaml:"sweep_interval_sec"` // 清理残留信封文件的间隔（秒）
		ScratchMaxAgeSec int `yaml:"scratch_max_age_sec"`
	} `yaml:"scheduler"`
}

func Load() *Config {
	// 首先尝试加载.env文件中的环境变量
	_ = godotenv.Load() // 忽略错误，如果.env文件不存在，继续使用系统环境变量

	cfg, err := LoadFromFile("config.yaml")
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Error loading config.yaml: %v, falling back to environment variables", err)
		}
		return loadFromEnv()
	}
	log.Println("Loading configuration from config.yaml")
	return cfg
}

// LoadFromFile 从指定的yaml文件加载配置，并应用环境变量覆盖和默认值
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)
	return &cfg, nil
}

func loadFromEnv() *Config {
	var cfg Config

	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}
	cfg.DB.Host = os.Getenv("DATABASE_HOST")
	if port := os.Getenv("DATABASE_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.DB.Port = p
		}
	}
	cfg.DB.Database = os.Getenv("DATABASE_NAME")
	cfg.Redis.Addr = os.Getenv("REDIS_ADDR")

	applyEnvOverrides(&cfg)
	if dsn := os.Getenv("DB_DSN"); dsn != "" {
		cfg.DB.DSN = dsn
	}
	applyDefaults(&cfg)

	log.Println("配置从环境变量加载，部分配置可能缺失")
	return &cfg
}

// applyEnvOverrides 从环境变量中加载敏感信息
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATABASE_USERNAME"); v != "" {
		cfg.DB.Username = v
	}
	if v := os.Getenv("DATABASE_PASSWORD"); v != "" {
		cfg.DB.Password = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("RECOMMENDER_PYTHON"); v != "" {
		cfg.Recommender.Python = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = p
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	cfg.Server.Addr = fmt.Sprintf(":%d", cfg.Server.Port)

	if cfg.DB.Charset == "" {
		cfg.DB.Charset = "utf8mb4"
	}
	// created_at 扫描为 time.Time，DSN 必须带 parseTime
	cfg.DB.ParseTime = true
	if cfg.DB.DSN == "" && cfg.DB.Host != "" {
		cfg.DB.DSN = fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=true",
			cfg.DB.Username,
			cfg.DB.Password,
			cfg.DB.Host,
			cfg.DB.Port,
			cfg.DB.Database,
			cfg.DB.Charset)
	}

	r := &cfg.Recommender
	if r.Python == "" {
		r.Python = "python3"
	}
	if r.Script == "" {
		r.Script = "ml_example/roadmap_recommender.py"
	}
	if r.PersonalizedScript == "" {
		r.PersonalizedScript = "ml_example/personalized_recommender.py"
	}
	if r.TimeoutSec <= 0 {
		r.TimeoutSec = 120
	}
	if r.ScratchDir == "" {
		r.ScratchDir = os.TempDir()
	}
	if r.Breaker.MaxRequests == 0 {
		r.Breaker.MaxRequests = 1
	}
	if r.Breaker.IntervalSec <= 0 {
		r.Breaker.IntervalSec = 60
	}
	if r.Breaker.TimeoutSec <= 0 {
		r.Breaker.TimeoutSec = 30
	}
	if r.Breaker.MinRequests == 0 {
		r.Breaker.MinRequests = 5
	}
	if r.Breaker.FailureRatio <= 0 {
		r.Breaker.FailureRatio = 0.6
	}

	if cfg.Dataset.Dir == "" {
		cfg.Dataset.Dir = "storage/app/private"
	}
	if cfg.Dataset.ModelsDir == "" {
		cfg.Dataset.ModelsDir = "ml_example/models"
	}
	if len(cfg.Dataset.ModelFiles) == 0 {
		cfg.Dataset.ModelFiles = []string{"roadmap_model.pkl", "scaler.pkl"}
	}

	if cfg.Auth.UserHeader == "" {
		cfg.Auth.UserHeader = "X-User-ID"
	}
	if cfg.RateLimit.AnalyzePerMin <= 0 {
		cfg.RateLimit.AnalyzePerMin = 10
	}

	// 锁内最多执行两次外部进程再加一次导出，锁不能先于临界区过期
	if cfg.Redis.LockTTL <= 0 {
		cfg.Redis.LockTTL = 300
	}
	if minTTL := r.TimeoutSec*2 + 60; cfg.Redis.LockTTL < minTTL {
		cfg.Redis.LockTTL = minTTL
	}

	// 写超时需要覆盖外部进程的最长执行时间
	if cfg.Timeouts.RequestSec <= 0 {
		cfg.Timeouts.RequestSec = 15
	}
	minResponse := r.TimeoutSec*2 + 30
	if cfg.Timeouts.ResponseSec < minResponse {
		cfg.Timeouts.ResponseSec = minResponse
	}
	if cfg.Timeouts.IdleSec <= 0 {
		cfg.Timeouts.IdleSec = 60
	}

	if cfg.Scheduler.CheckIntervalSec <= 0 {
		cfg.Scheduler.CheckIntervalSec = 60
	}
	if cfg.Scheduler.SweepIntervalSec <= 0 {
		cfg.Scheduler.SweepIntervalSec = 3600
	}
	if cfg.Scheduler.ScratchMaxAgeSec <= 0 {
		cfg.Scheduler.ScratchMaxAgeSec = 3600
	}
}
