// Package config 提供配置管理
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/zhiban/zhiban/pkg/scheduler/penalty"
)

// Config 应用配置（启动时加载一次，进程内只读）
type Config struct {
	App       AppConfig
	API       APIConfig
	Scheduler SchedulerConfig
	Penalty   penalty.Weights
}

// AppConfig 应用基础配置
type AppConfig struct {
	Name     string
	Env      string
	Port     int
	LogLevel string
}

// APIConfig API配置
type APIConfig struct {
	RateLimit int
}

// SchedulerConfig 求解器配置
type SchedulerConfig struct {
	TimeLimitSeconds int
	RandomSeed       int
	NumWorkers       int
}

// Load 从环境变量加载配置（.env 文件存在时先读入）
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		App: AppConfig{
			Name:     getEnv("APP_NAME", "zhiban"),
			Env:      getEnv("APP_ENV", "development"),
			Port:     getEnvInt("PORT", 8080),
			LogLevel: getEnv("APP_LOG_LEVEL", "info"),
		},
		API: APIConfig{
			RateLimit: getEnvInt("API_RATE_LIMIT", 100),
		},
		Scheduler: SchedulerConfig{
			TimeLimitSeconds: getEnvInt("SCHEDULER_TIME_LIMIT_SECONDS", 60),
			RandomSeed:       getEnvInt("SCHEDULER_RANDOM_SEED", 42),
			NumWorkers:       getEnvInt("SCHEDULER_NUM_WORKERS", 4),
		},
		Penalty: loadPenalty(),
	}

	return cfg, nil
}

// loadPenalty 加载惩罚权重，默认值即规格中的字面系数
func loadPenalty() penalty.Weights {
	w := penalty.Defaults()
	w.Unavailability = getEnvInt64("PENALTY_UNAVAILABILITY", w.Unavailability)
	w.BelowIdealStrong = getEnvInt64("PENALTY_BELOW_IDEAL_STRONG", w.BelowIdealStrong)
	w.AboveIdealStrong = getEnvInt64("PENALTY_ABOVE_IDEAL_STRONG", w.AboveIdealStrong)
	w.ZeroShifts = getEnvInt64("PENALTY_ZERO_SHIFTS", w.ZeroShifts)
	w.UnavailabilityTie = getEnvInt64("PENALTY_UNAVAILABILITY_FAIRNESS", w.UnavailabilityTie)
	w.UnavailabilityRepeat = getEnvInt64("PENALTY_UNAVAILABILITY_VIOLATION", w.UnavailabilityRepeat)
	w.Consecutive3Days = getEnvInt64("PENALTY_CONSECUTIVE_DAYS", w.Consecutive3Days)
	w.IdealSoft = getEnvInt64("PENALTY_IDEAL_SOFT", w.IdealSoft)
	w.HistoryFairness = getEnvInt64("PENALTY_HISTORY_FAIRNESS", w.HistoryFairness)
	w.DutyTypeFair = getEnvInt64("PENALTY_FAIRNESS_DUTY_TYPE", w.DutyTypeFair)
	w.NightFair = getEnvInt64("PENALTY_FAIRNESS_NIGHT", w.NightFair)
	w.WeekendSlotFair = getEnvInt64("PENALTY_FAIRNESS_WEEKEND_SLOTS", w.WeekendSlotFair)
	w.WeeklyCluster = getEnvInt64("PENALTY_WEEKLY_CLUSTERING", w.WeeklyCluster)
	w.TwoShiftsSameDay = getEnvInt64("PENALTY_TWO_SHIFTS_SAME_DAY", w.TwoShiftsSameDay)
	w.ConsecutiveNight = getEnvInt64("PENALTY_CONSECUTIVE_NIGHTS", w.ConsecutiveNight)
	w.DislikesWeekend = getEnvInt64("PENALTY_DISLIKES_WEEKEND", w.DislikesWeekend)
	w.LikesNight = getEnvInt64("BONUS_LIKES_NIGHT", w.LikesNight)
	w.LikesSegment = getEnvInt64("BONUS_LIKES_SEGMENT", w.LikesSegment)
	w.SegmentFair = getEnvInt64("PENALTY_FAIRNESS_SEGMENT", w.SegmentFair)
	return w
}

// IsDevelopment 检查是否为开发环境
func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}

// IsProduction 检查是否为生产环境
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// 辅助函数
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}
