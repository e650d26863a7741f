package main

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"
	"github.com/typepulse/typepulse/internal/adapters/http/api"
	service "github.com/typepulse/typepulse/internal/app"
	"github.com/typepulse/typepulse/internal/config"
	"github.com/typepulse/typepulse/pkg/metrics"
)

const testKeyHex = "7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f"

func TestMainFunction(t *testing.T) {
	convey.Convey("Given the main application", t, func() {
		convey.Convey("When testing configuration loading", func() {
			_ = os.Setenv("TYPEPULSE_ADDR", ":8080")
			_ = os.Setenv("TYPEPULSE_QUEUE_SIZE", "1000")
			_ = os.Setenv("TYPEPULSE_BURST_TIMEOUT_MS", "3000")
			_ = os.Setenv("TYPEPULSE_ENCRYPTION_KEY", testKeyHex)
			defer func() {
				_ = os.Unsetenv("TYPEPULSE_ADDR")
				_ = os.Unsetenv("TYPEPULSE_QUEUE_SIZE")
				_ = os.Unsetenv("TYPEPULSE_BURST_TIMEOUT_MS")
				_ = os.Unsetenv("TYPEPULSE_ENCRYPTION_KEY")
			}()

			convey.Convey("Then configuration should be loadable", func() {
				cfg, err := config.Load()
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.EventQueueSize, convey.ShouldEqual, 1000)
				convey.So(cfg.BurstTimeoutMS, convey.ShouldEqual, 3000)
			})
		})

		convey.Convey("When testing service creation", func() {
			convey.Convey("Then service should be creatable with default options", func() {
				svc := service.New()
				convey.So(svc, convey.ShouldNotBeNil)
			})

			convey.Convey("And service should be creatable with custom options", func() {
				svc := service.New(
					service.WithQueueSize(2000),
					service.WithDedupeSize(1000),
					service.WithDeviceMode(service.ModeSim),
				)
				convey.So(svc, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When testing HTTP server creation", func() {
			svc := service.New()
			convey.So(svc, convey.ShouldNotBeNil)

			convey.Convey("Then HTTP server should be creatable", func() {
				server := api.NewServer(svc, maxRankingLimit)
				convey.So(server, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When testing metrics initialization", func() {
			convey.Convey("Then metrics manager should be creatable", func() {
				manager := metrics.NewManager()
				convey.So(manager, convey.ShouldNotBeNil)
			})
		})
	})
}

func TestMainApplicationComponents(t *testing.T) {
	convey.Convey("Given main application components", t, func() {
		convey.Convey("When testing system metrics updater", func() {
			convey.Convey("Then it should stop with its context", func() {
				ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
				defer cancel()

				convey.So(func() {
					startSystemMetricsUpdater(ctx)
				}, convey.ShouldNotPanic)
			})
		})

		convey.Convey("When testing service metrics updater", func() {
			svc := service.New()
			convey.So(svc, convey.ShouldNotBeNil)

			convey.Convey("Then it should stop with its context", func() {
				ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
				defer cancel()

				convey.So(func() {
					startServiceMetricsUpdater(ctx, svc)
				}, convey.ShouldNotPanic)
			})
		})

		convey.Convey("When testing system metrics update", func() {
			convey.Convey("Then it should update metrics without panicking", func() {
				convey.So(func() {
					updateSystemMetrics()
				}, convey.ShouldNotPanic)
			})
		})

		convey.Convey("When testing service metrics update", func() {
			svc := service.New()

			convey.Convey("Then it should update metrics without panicking", func() {
				convey.So(func() {
					updateServiceMetrics(svc)
				}, convey.ShouldNotPanic)
			})
		})
	})
}
