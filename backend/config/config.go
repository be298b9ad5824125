package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用全局配置结构体
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"db"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Log        LogConfig        `mapstructure:"log"`
	Attendance AttendanceConfig `mapstructure:"attendance"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port       int           `mapstructure:"port"`
	RateLimit  int           `mapstructure:"rate_limit"` // 每个窗口允许的请求数，0 表示关闭
	RateWindow time.Duration `mapstructure:"rate_window"`
	CORS       CORSConfig    `mapstructure:"cors"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// DatabaseConfig PostgreSQL 数据库配置
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"sslmode"`
	Timezone        string `mapstructure:"timezone"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // 连接最大生命周期（分钟）
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // 空闲连接最大存活时间（分钟）
	ConnectAttempts uint   `mapstructure:"connect_attempts"`   // 启动时连接重试次数
}

// DSN 生成 PostgreSQL 连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.Timezone,
	)
}

// RedisConfig Redis 配置（调度租约 + 限流）
type RedisConfig struct {
	Addr            string `mapstructure:"addr"`
	Password        string `mapstructure:"password"`
	DB              int    `mapstructure:"db"`
	ConnectAttempts uint   `mapstructure:"connect_attempts"`
}

// AuthConfig JWT 校验配置（Token 由外部认证服务签发）
type AuthConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
	Issuer         string        `mapstructure:"issuer"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// AttendanceConfig 计划/实际比对配置，所有阈值单位为分钟
type AttendanceConfig struct {
	Timezone                     string               `mapstructure:"timezone"`
	IntraDayCutoffHour           int                  `mapstructure:"intra_day_cutoff_hour"` // 班次内归属切换点
	CloseoutCutoffHour           int                  `mapstructure:"closeout_cutoff_hour"`  // 日终结算切换点
	DedupWindow                  time.Duration        `mapstructure:"dedup_window"`
	PairWindow                   time.Duration        `mapstructure:"pair_window"` // 连续离开打卡视为重复刷卡的窗口
	PartialMatchToleranceMinutes int                  `mapstructure:"partial_match_tolerance_minutes"`
	MaxRangeDays                 int                  `mapstructure:"max_range_days"`
	Arrival                      ArrivalThresholds    `mapstructure:"arrival"`
	Departure                    DepartureThresholds  `mapstructure:"departure"`
	Redundancy                   RedundancyThresholds `mapstructure:"redundancy"`
}

// ArrivalThresholds 到达阈值，作用于 ecart = 计划 - 实际（正数表示提前）
type ArrivalThresholds struct {
	EarlyHorsPlage   int `mapstructure:"early_hors_plage"`
	RetardAcceptable int `mapstructure:"retard_acceptable"`
	RetardModere     int `mapstructure:"retard_modere"`
}

// DepartureThresholds 离开阈值，作用于 ecart = 计划结束 - 实际（正数表示早退）
type DepartureThresholds struct {
	PrematureCritique     int `mapstructure:"premature_critique"`
	Anticipe              int `mapstructure:"anticipe"`
	HeuresSupAutoValidees int `mapstructure:"heures_sup_auto_validees"`
	HeuresSupAValider     int `mapstructure:"heures_sup_a_valider"`
}

// RedundancyThresholds 冗余时段过滤阈值
type RedundancyThresholds struct {
	HighOverlapRatio   float64 `mapstructure:"high_overlap_ratio"`
	LowOverlapRatio    float64 `mapstructure:"low_overlap_ratio"`
	QuarterStepMinutes int     `mapstructure:"quarter_step_minutes"`
}

// SchedulerConfig 异常检测调度器配置
type SchedulerConfig struct {
	Enabled                       bool          `mapstructure:"enabled"`
	Interval                      time.Duration `mapstructure:"interval"`
	RecentEndWindowMinutes        int           `mapstructure:"recent_end_window_minutes"`
	CatchUpGraceMinutes           int           `mapstructure:"catch_up_grace_minutes"`
	UnmatchedEveryMinutes         int           `mapstructure:"unmatched_every_minutes"`
	UnmatchedToleranceMinutes     int           `mapstructure:"unmatched_tolerance_minutes"`
	StillClockedInEveryMinutes    int           `mapstructure:"still_clocked_in_every_minutes"`
	StillClockedInAfterMinutes    int           `mapstructure:"still_clocked_in_after_minutes"`
	StillClockedInEscalateMinutes int           `mapstructure:"still_clocked_in_escalate_minutes"`
	LockTTL                       time.Duration `mapstructure:"lock_ttl"`
	EmployeeCacheTTL              time.Duration `mapstructure:"employee_cache_ttl"`
	EmployeeCacheSize             int           `mapstructure:"employee_cache_size"`
	IgnoredRoles                  []string      `mapstructure:"ignored_roles"`
}

// Load 从配置文件与环境变量加载配置
// 优先级：环境变量 > 配置文件 > 默认值
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// ── 配置文件 ──
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// ── 环境变量 ──
	v.SetEnvPrefix("SHIFTAUDIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		// 配置文件不存在时仅依赖默认值和环境变量
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	// ── 关键配置校验 ──
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.rate_limit", 120)
	v.SetDefault("server.rate_window", "1m")
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:5173"})

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "gestion_rh")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime", 60)  // 60分钟
	v.SetDefault("db.conn_max_idle_time", 30) // 30分钟
	v.SetDefault("db.connect_attempts", 5)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.connect_attempts", 3)

	v.SetDefault("auth.jwt_secret", "") // 必须通过环境变量或配置文件提供
	v.SetDefault("auth.access_token_ttl", "15m")
	v.SetDefault("auth.issuer", "gestion-rh")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// ── 比对规则 ──
	v.SetDefault("attendance.timezone", "Europe/Paris")
	v.SetDefault("attendance.intra_day_cutoff_hour", 5)
	v.SetDefault("attendance.closeout_cutoff_hour", 6)
	v.SetDefault("attendance.dedup_window", "2m")
	v.SetDefault("attendance.pair_window", "10m")
	v.SetDefault("attendance.partial_match_tolerance_minutes", 120)
	v.SetDefault("attendance.max_range_days", 62)
	v.SetDefault("attendance.arrival.early_hors_plage", 30)
	v.SetDefault("attendance.arrival.retard_acceptable", -5)
	v.SetDefault("attendance.arrival.retard_modere", -20)
	v.SetDefault("attendance.departure.premature_critique", 30)
	v.SetDefault("attendance.departure.anticipe", 15)
	v.SetDefault("attendance.departure.heures_sup_auto_validees", -30)
	v.SetDefault("attendance.departure.heures_sup_a_valider", -90)
	v.SetDefault("attendance.redundancy.high_overlap_ratio", 0.8)
	v.SetDefault("attendance.redundancy.low_overlap_ratio", 0.5)
	v.SetDefault("attendance.redundancy.quarter_step_minutes", 15)

	// ── 调度器 ──
	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.interval", "1m")
	v.SetDefault("scheduler.recent_end_window_minutes", 2)
	v.SetDefault("scheduler.catch_up_grace_minutes", 5)
	v.SetDefault("scheduler.unmatched_every_minutes", 5)
	v.SetDefault("scheduler.unmatched_tolerance_minutes", 240)
	v.SetDefault("scheduler.still_clocked_in_every_minutes", 10)
	v.SetDefault("scheduler.still_clocked_in_after_minutes", 60)
	v.SetDefault("scheduler.still_clocked_in_escalate_minutes", 180)
	v.SetDefault("scheduler.lock_ttl", "55s")
	v.SetDefault("scheduler.employee_cache_ttl", "5m")
	v.SetDefault("scheduler.employee_cache_size", 10000)
	v.SetDefault("scheduler.ignored_roles", []string{"admin", "manager", "rh"})
}

// Validate 校验关键配置项
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 不能为空")
	}
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 长度不能少于 16 字符")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("配置校验失败: server.port 必须在 1-65535 之间")
	}
	if err := c.Attendance.Validate(); err != nil {
		return err
	}
	return c.Scheduler.Validate()
}

// Validate 校验比对规则：切换点、阈值顺序、冗余比例
func (a *AttendanceConfig) Validate() error {
	if _, err := time.LoadLocation(a.Timezone); err != nil {
		return fmt.Errorf("配置校验失败: attendance.timezone 无效 %q: %w", a.Timezone, err)
	}
	if a.IntraDayCutoffHour < 0 || a.IntraDayCutoffHour > 23 {
		return fmt.Errorf("配置校验失败: attendance.intra_day_cutoff_hour 必须在 0-23 之间")
	}
	if a.CloseoutCutoffHour < 0 || a.CloseoutCutoffHour > 23 {
		return fmt.Errorf("配置校验失败: attendance.closeout_cutoff_hour 必须在 0-23 之间")
	}
	if a.DedupWindow < 0 || a.PairWindow < 0 {
		return fmt.Errorf("配置校验失败: attendance 去重/配对窗口不能为负")
	}
	if !(a.Arrival.RetardModere < a.Arrival.RetardAcceptable && a.Arrival.RetardAcceptable <= a.Arrival.EarlyHorsPlage) {
		return fmt.Errorf("配置校验失败: attendance.arrival 阈值需满足 retard_modere < retard_acceptable <= early_hors_plage")
	}
	d := a.Departure
	if !(d.HeuresSupAValider < d.HeuresSupAutoValidees && d.HeuresSupAutoValidees <= 0 && 0 <= d.Anticipe && d.Anticipe <= d.PrematureCritique) {
		return fmt.Errorf("配置校验失败: attendance.departure 阈值顺序无效")
	}
	r := a.Redundancy
	if r.LowOverlapRatio <= 0 || r.HighOverlapRatio > 1 || r.LowOverlapRatio > r.HighOverlapRatio {
		return fmt.Errorf("配置校验失败: attendance.redundancy 比例需满足 0 < low <= high <= 1")
	}
	if r.QuarterStepMinutes <= 0 {
		return fmt.Errorf("配置校验失败: attendance.redundancy.quarter_step_minutes 必须为正数")
	}
	if a.MaxRangeDays <= 0 {
		return fmt.Errorf("配置校验失败: attendance.max_range_days 必须为正数")
	}
	return nil
}

// Validate 校验调度器节奏配置
func (s *SchedulerConfig) Validate() error {
	if s.Interval <= 0 {
		return fmt.Errorf("配置校验失败: scheduler.interval 必须为正数")
	}
	if s.UnmatchedEveryMinutes <= 0 || s.StillClockedInEveryMinutes <= 0 {
		return fmt.Errorf("配置校验失败: scheduler 巡检间隔必须为正数")
	}
	if s.StillClockedInEscalateMinutes < s.StillClockedInAfterMinutes {
		return fmt.Errorf("配置校验失败: scheduler.still_clocked_in_escalate_minutes 不能小于 still_clocked_in_after_minutes")
	}
	return nil
}
