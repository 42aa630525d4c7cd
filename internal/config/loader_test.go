package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"demostats/internal/config"
)

var configEnvVars = []string{
	config.EnvFile,
	"DEMOSTATS_LOG_LEVEL",
	"DEMOSTATS_SAVE_THRESHOLD",
	"DEMOSTATS_ROUNDS_PER_HALF",
	"DEMOSTATS_BLIND_GRENADES",
	"DEMOSTATS_HIGHLIGHT_FIRST",
	"DEMOSTATS_HIGHLIGHT_SECOND",
	"DEMOSTATS_INDEX_WORKERS",
}

func clearConfigEnvVars() {
	for _, k := range configEnvVars {
		_ = os.Unsetenv(k)
	}
}

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When loading with defaults only", func() {
			cfg, err := config.Load()

			convey.Convey("Then the competitive defaults apply", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
				convey.So(cfg.SaveThreshold, convey.ShouldEqual, 1000)
				convey.So(cfg.LightBuyThreshold, convey.ShouldEqual, 2900)
				convey.So(cfg.RoundsPerHalf, convey.ShouldEqual, 12)
				convey.So(cfg.OvertimeRoundsPerHalf, convey.ShouldEqual, 3)
				convey.So(cfg.BlindGrenades, convey.ShouldResemble, []string{"flashbang"})
				convey.So(cfg.CachePath, convey.ShouldEqual, "demodata.json")
				convey.So(cfg.Policy().Highlight.Enabled(), convey.ShouldBeFalse)
			})
		})

		convey.Convey("When environment variables are set", func() {
			_ = os.Setenv("DEMOSTATS_SAVE_THRESHOLD", "1500")
			_ = os.Setenv("DEMOSTATS_BLIND_GRENADES", "flashbang,decoy")
			_ = os.Setenv("DEMOSTATS_HIGHLIGHT_FIRST", "76561198000000001")
			_ = os.Setenv("DEMOSTATS_HIGHLIGHT_SECOND", "76561198000000002")

			cfg, err := config.Load()

			convey.Convey("Then they override the defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.SaveThreshold, convey.ShouldEqual, 1500)
				convey.So(cfg.BlindGrenades, convey.ShouldResemble, []string{"flashbang", "decoy"})
				policy := cfg.Policy()
				convey.So(policy.Highlight.First, convey.ShouldEqual, uint64(76561198000000001))
				convey.So(policy.Highlight.Enabled(), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a YAML file is named", func() {
			path := filepath.Join(t.TempDir(), "demostats.yaml")
			content := "log_level: debug\nrounds_per_half: 15\nhighlight_origin_x: -420.5\n"
			convey.So(os.WriteFile(path, []byte(content), 0o600), convey.ShouldBeNil)
			_ = os.Setenv(config.EnvFile, path)
			_ = os.Setenv("DEMOSTATS_LOG_LEVEL", "warn")

			cfg, err := config.Load()

			convey.Convey("Then the file applies below the environment", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.RoundsPerHalf, convey.ShouldEqual, 15)
				convey.So(cfg.HighlightOriginX, convey.ShouldEqual, -420.5)
				convey.So(cfg.LogLevel, convey.ShouldEqual, "warn")
			})
		})

		convey.Convey("When the named file is missing", func() {
			_ = os.Setenv(config.EnvFile, filepath.Join(t.TempDir(), "nope.yaml"))
			_, err := config.Load()
			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("When values are unusable", func() {
			_ = os.Setenv("DEMOSTATS_ROUNDS_PER_HALF", "0")
			_, err := config.Load()
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When only one highlight participant is set", func() {
			_ = os.Setenv("DEMOSTATS_HIGHLIGHT_FIRST", "1")
			_, err := config.Load()
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		})
	})
}
