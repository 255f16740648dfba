package config_test

import (
	"errors"
	"testing"

	"github.com/okian/evaldash/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.LogFormat, convey.ShouldEqual, "text")
			convey.So(cfg.Audit.Medium, convey.ShouldEqual, config.MediumFile)
			convey.So(cfg.Audit.MaxEvents, convey.ShouldEqual, 2000)
			convey.So(cfg.Audit.FallbackKeep, convey.ShouldEqual, 500)
			convey.So(cfg.Audit.DefaultListLimit, convey.ShouldEqual, 500)
			convey.So(cfg.SnapshotTTL().Seconds(), convey.ShouldEqual, 15)
			convey.So(cfg.Metrics.Enabled, convey.ShouldBeTrue)
			convey.So(cfg.MetricsRefreshInterval().Seconds(), convey.ShouldEqual, 10)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a valid config", t, func() {
		cfg := config.New()

		cases := []struct {
			name   string
			mutate func(*config.Config)
			substr string
		}{
			{"empty addr", func(c *config.Config) { c.Addr = " " }, "addr must not be empty"},
			{"zero max events", func(c *config.Config) { c.Audit.MaxEvents = 0 }, "audit.max_events"},
			{"fallback above cap", func(c *config.Config) { c.Audit.FallbackKeep = 5000 }, "audit.fallback_keep"},
			{"unknown medium", func(c *config.Config) { c.Audit.Medium = "s3" }, "unknown audit.medium"},
			{"redis without addr", func(c *config.Config) {
				c.Audit.Medium = config.MediumRedis
				c.Audit.Redis.Addr = ""
			}, "audit.redis.addr"},
			{"postgres without dsn", func(c *config.Config) { c.Audit.Medium = config.MediumPostgres }, "audit.postgres.dsn"},
			{"relative base url", func(c *config.Config) { c.Collaborator.BaseURL = "/api" }, "collaborator.base_url"},
			{"bad timezone", func(c *config.Config) { c.DisplayTimezone = "Mars/Olympus" }, "display_timezone"},
			{"zero metrics refresh", func(c *config.Config) { c.Metrics.RefreshIntervalMS = 0 }, "metrics.refresh_interval_ms"},
			{"negative idempotency capacity", func(c *config.Config) { c.IdempotencyCapacity = -1 }, "idempotency_capacity"},
		}

		for _, tc := range cases {
			convey.Convey("When it has "+tc.name, func() {
				tc.mutate(cfg)
				err := cfg.Validate()

				convey.Convey("Then validation fails with ErrInvalidConfig", func() {
					convey.So(err, convey.ShouldNotBeNil)
					convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
					convey.So(err.Error(), convey.ShouldContainSubstring, tc.substr)
				})
			})
		}

		convey.Convey("When the memory medium is selected", func() {
			cfg.Audit.Medium = config.MediumMemory
			cfg.Audit.Dir = ""

			convey.Convey("Then no directory is required", func() {
				convey.So(cfg.Validate(), convey.ShouldBeNil)
			})
		})
	})
}
