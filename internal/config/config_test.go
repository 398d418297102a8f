package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.App.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.App.Port)
	}
	if cfg.Scheduler.TimeLimitSeconds != 60 {
		t.Errorf("time limit = %d, want 60", cfg.Scheduler.TimeLimitSeconds)
	}
	if cfg.Scheduler.RandomSeed != 42 {
		t.Errorf("seed = %d, want 42", cfg.Scheduler.RandomSeed)
	}

	// 惩罚权重默认值为规格字面量
	if cfg.Penalty.Unavailability != 200_000 {
		t.Errorf("unavailability = %d", cfg.Penalty.Unavailability)
	}
	if cfg.Penalty.BelowIdealStrong != 140_000 {
		t.Errorf("belowIdealStrong = %d", cfg.Penalty.BelowIdealStrong)
	}
	if cfg.Penalty.AboveIdealStrong != 120_000 {
		t.Errorf("aboveIdealStrong = %d", cfg.Penalty.AboveIdealStrong)
	}
	if cfg.Penalty.ZeroShifts != 80_000 {
		t.Errorf("zeroShifts = %d", cfg.Penalty.ZeroShifts)
	}
	if cfg.Penalty.Consecutive3Days != 7_000 {
		t.Errorf("consecutive3Days = %d", cfg.Penalty.Consecutive3Days)
	}
	if cfg.Penalty.IdealSoft != 4_000 {
		t.Errorf("idealSoft = %d", cfg.Penalty.IdealSoft)
	}
	if cfg.Penalty.WeekendSlotFair != 50 {
		t.Errorf("weekendSlotFair = %d", cfg.Penalty.WeekendSlotFair)
	}
	if cfg.Penalty.DislikesWeekend != 10 || cfg.Penalty.LikesNight != 5 {
		t.Error("preference weights wrong")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("SCHEDULER_TIME_LIMIT_SECONDS", "15")
	t.Setenv("PENALTY_UNAVAILABILITY", "300000")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.App.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.App.Port)
	}
	if cfg.Scheduler.TimeLimitSeconds != 15 {
		t.Errorf("time limit = %d, want 15", cfg.Scheduler.TimeLimitSeconds)
	}
	if cfg.Penalty.Unavailability != 300_000 {
		t.Errorf("unavailability = %d, want 300000", cfg.Penalty.Unavailability)
	}
}

func TestLoadIgnoresGarbage(t *testing.T) {
	t.Setenv("SCHEDULER_RANDOM_SEED", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Scheduler.RandomSeed != 42 {
		t.Errorf("seed = %d, want default 42", cfg.Scheduler.RandomSeed)
	}
}
