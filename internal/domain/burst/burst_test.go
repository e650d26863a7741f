package burst_test

import (
	"errors"
	"testing"

	burst "github.com/typepulse/typepulse/internal/domain/burst"
	. "github.com/smartystreets/goconvey/convey"
)

func validConfig() burst.Config {
	return burst.Config{
		BurstTimeoutMS:         3000,
		Method:                 burst.TotalTime,
		MinKeyCount:            10,
		MinDurationMS:          5000,
		HighScoreMinDurationMS: 10000,
	}
}

func TestSegmenter_SingleBurst(t *testing.T) {
	Convey("Given a segmenter with a 3000ms timeout", t, func() {
		seg, err := burst.NewSegmenter(validConfig())
		So(err, ShouldBeNil)

		Convey("When five presses arrive 150ms apart", func() {
			for _, ts := range []int64{0, 150, 300, 450, 600} {
				done, perr := seg.ProcessPress(ts, false)
				So(perr, ShouldBeNil)
				So(done, ShouldBeNil)
			}

			Convey("Then flushing yields one burst with all five keys", func() {
				b := seg.Flush()
				So(b, ShouldNotBeNil)
				So(b.KeyCount, ShouldEqual, 5)
				So(b.BackspaceCount, ShouldEqual, 0)
				So(b.NetKeyCount, ShouldEqual, 5)
				So(b.StartTimeMS, ShouldEqual, 0)
				So(b.EndTimeMS, ShouldEqual, 600)
				So(b.DurationMS, ShouldEqual, 600)
				So(seg.Open(), ShouldBeFalse)
			})
		})
	})
}

func TestSegmenter_BackspaceCounting(t *testing.T) {
	Convey("Given an open burst", t, func() {
		seg, err := burst.NewSegmenter(validConfig())
		So(err, ShouldBeNil)

		Convey("When typing A B C Backspace D", func() {
			presses := []struct {
				ts        int64
				backspace bool
			}{
				{0, false}, {100, false}, {200, false}, {300, true}, {400, false},
			}
			for _, p := range presses {
				_, perr := seg.ProcessPress(p.ts, p.backspace)
				So(perr, ShouldBeNil)
			}

			Convey("Then the net count charges two per backspace", func() {
				b := seg.Flush()
				So(b.KeyCount, ShouldEqual, 5)
				So(b.BackspaceCount, ShouldEqual, 1)
				So(b.NetKeyCount, ShouldEqual, 3)
				So(b.BackspaceRatio, ShouldAlmostEqual, 0.2)
			})
		})
	})
}

func TestSegmenter_GapSplitsBursts(t *testing.T) {
	Convey("Given two keystroke groups separated by 4000ms with a 3000ms timeout", t, func() {
		seg, err := burst.NewSegmenter(validConfig())
		So(err, ShouldBeNil)

		for _, ts := range []int64{0, 100, 200} {
			_, perr := seg.ProcessPress(ts, false)
			So(perr, ShouldBeNil)
		}

		Convey("When the first press of the second group arrives", func() {
			done, perr := seg.ProcessPress(4200, false)
			So(perr, ShouldBeNil)

			Convey("Then the first burst is finalized and a second is open", func() {
				So(done, ShouldNotBeNil)
				So(done.KeyCount, ShouldEqual, 3)
				So(done.StartTimeMS, ShouldEqual, 0)
				So(done.EndTimeMS, ShouldEqual, 200)
				So(seg.Open(), ShouldBeTrue)

				second := seg.Flush()
				So(second.StartTimeMS, ShouldEqual, 4200)
				So(second.KeyCount, ShouldEqual, 1)
			})
		})
	})
}

func TestSegmenter_CloseIfIdle(t *testing.T) {
	Convey("Given an open burst", t, func() {
		seg, err := burst.NewSegmenter(validConfig())
		So(err, ShouldBeNil)
		_, _ = seg.ProcessPress(0, false)
		_, _ = seg.ProcessPress(500, false)

		Convey("When the flush tick fires before the timeout", func() {
			So(seg.CloseIfIdle(2000), ShouldBeNil)
			So(seg.Open(), ShouldBeTrue)
		})

		Convey("When the flush tick fires after the timeout", func() {
			b := seg.CloseIfIdle(3600)
			So(b, ShouldNotBeNil)
			So(b.KeyCount, ShouldEqual, 2)
			So(b.EndTimeMS, ShouldEqual, 500)
			So(seg.Open(), ShouldBeFalse)
		})
	})
}

func TestSegmenter_ActiveTimeDuration(t *testing.T) {
	Convey("Given an active-time segmenter with a 500ms threshold", t, func() {
		cfg := validConfig()
		cfg.Method = burst.ActiveTime
		cfg.ActiveTimeThresholdMS = 500
		seg, err := burst.NewSegmenter(cfg)
		So(err, ShouldBeNil)

		Convey("When gaps of 200, 300, 1000 and 200ms occur", func() {
			for _, ts := range []int64{0, 200, 500, 1500, 1700} {
				_, perr := seg.ProcessPress(ts, false)
				So(perr, ShouldBeNil)
			}

			Convey("Then the 1000ms thinking pause is excluded", func() {
				b := seg.Flush()
				So(b.DurationMS, ShouldEqual, 700)
			})
		})

		Convey("When no gap reaches the threshold", func() {
			for _, ts := range []int64{0, 100, 200, 300} {
				_, perr := seg.ProcessPress(ts, false)
				So(perr, ShouldBeNil)
			}

			Convey("Then active duration equals total duration", func() {
				b := seg.Flush()
				So(b.DurationMS, ShouldEqual, b.EndTimeMS-b.StartTimeMS)
			})
		})
	})
}

func TestSegmenter_ActiveTimeLongStream(t *testing.T) {
	Convey("Given an active-time segmenter with a 500ms threshold", t, func() {
		cfg := validConfig()
		cfg.Method = burst.ActiveTime
		cfg.ActiveTimeThresholdMS = 500
		seg, err := burst.NewSegmenter(cfg)
		So(err, ShouldBeNil)

		Convey("When thousands of presses stream in with periodic pauses", func() {
			// 100ms per press, with a 2000ms thinking pause every
			// hundredth press. Only the sub-threshold gaps count.
			var ts, wantActive int64
			_, _ = seg.ProcessPress(ts, false)
			for i := 1; i < 5000; i++ {
				gap := int64(100)
				if i%100 == 0 {
					gap = 2000
				}
				ts += gap
				_, perr := seg.ProcessPress(ts, false)
				So(perr, ShouldBeNil)
				if gap < cfg.ActiveTimeThresholdMS {
					wantActive += gap
				}
			}

			Convey("Then the live burst carries the running active duration", func() {
				open, ok := seg.Current()
				So(ok, ShouldBeTrue)
				So(open.DurationMS, ShouldEqual, wantActive)

				b := seg.Flush()
				So(b.DurationMS, ShouldEqual, wantActive)
				So(b.DurationMS, ShouldBeLessThan, b.EndTimeMS-b.StartTimeMS)
			})
		})

		Convey("When a gap lands exactly on the threshold", func() {
			for _, press := range []int64{0, 200, 700} {
				_, perr := seg.ProcessPress(press, false)
				So(perr, ShouldBeNil)
			}

			Convey("Then the boundary gap is excluded from active time", func() {
				b := seg.Flush()
				So(b.DurationMS, ShouldEqual, 200)
			})
		})

		Convey("When a burst follows a finalized one", func() {
			_, _ = seg.ProcessPress(0, false)
			_, _ = seg.ProcessPress(100, false)
			done, perr := seg.ProcessPress(10000, false)
			So(perr, ShouldBeNil)
			So(done, ShouldNotBeNil)
			_, _ = seg.ProcessPress(10200, false)

			Convey("Then active time restarts from zero for the new burst", func() {
				b := seg.Flush()
				So(b.DurationMS, ShouldEqual, 200)
			})
		})
	})
}

func TestSegmenter_NonMonotonicTimestamps(t *testing.T) {
	Convey("Given an open burst", t, func() {
		seg, err := burst.NewSegmenter(validConfig())
		So(err, ShouldBeNil)
		_, _ = seg.ProcessPress(1000, false)

		Convey("When a press arrives with an earlier timestamp", func() {
			done, perr := seg.ProcessPress(900, false)

			Convey("Then the event is rejected and counts are untouched", func() {
				So(errors.Is(perr, burst.ErrNonMonotonic), ShouldBeTrue)
				So(done, ShouldBeNil)
				b := seg.Flush()
				So(b.KeyCount, ShouldEqual, 1)
			})
		})
	})
}

func TestSegmenter_Qualification(t *testing.T) {
	Convey("Given thresholds of 10 keys and 5000ms", t, func() {
		seg, err := burst.NewSegmenter(validConfig())
		So(err, ShouldBeNil)

		Convey("A short burst does not qualify for persistence", func() {
			for _, ts := range []int64{0, 100, 200} {
				_, _ = seg.ProcessPress(ts, false)
			}
			b := seg.Flush()
			So(seg.Qualifies(b), ShouldBeFalse)
		})

		Convey("A long enough burst qualifies, and ten more seconds earns the high-score gate", func() {
			var ts int64
			for i := 0; i < 25; i++ {
				_, _ = seg.ProcessPress(ts, false)
				ts += 500
			}
			b := seg.Flush()
			So(b.DurationMS, ShouldEqual, 12000)
			So(seg.Qualifies(b), ShouldBeTrue)
			So(b.QualifiesForHighScore, ShouldBeTrue)
			So(b.AvgWPM, ShouldAlmostEqual, burst.WPM(b.NetKeyCount, b.DurationMS))
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*burst.Config)
		ok     bool
	}{
		{"valid", func(c *burst.Config) {}, true},
		{"missing timeout", func(c *burst.Config) { c.BurstTimeoutMS = 0 }, false},
		{"negative timeout", func(c *burst.Config) { c.BurstTimeoutMS = -1 }, false},
		{"zero min key count", func(c *burst.Config) { c.MinKeyCount = 0 }, false},
		{"negative min duration", func(c *burst.Config) { c.MinDurationMS = -5 }, false},
		{"threshold above timeout", func(c *burst.Config) {
			c.Method = burst.ActiveTime
			c.ActiveTimeThresholdMS = 5000
		}, false},
		{"threshold within timeout", func(c *burst.Config) {
			c.Method = burst.ActiveTime
			c.ActiveTimeThresholdMS = 500
		}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.ok && err != nil {
				t.Fatalf("expected valid config, got %v", err)
			}
			if !tc.ok {
				if err == nil {
					t.Fatal("expected validation error")
				}
				if !errors.Is(err, burst.ErrInvalidConfig) {
					t.Fatalf("expected ErrInvalidConfig, got %v", err)
				}
			}
		})
	}
}

func TestParseDurationMethod(t *testing.T) {
	if m, err := burst.ParseDurationMethod("active_time"); err != nil || m != burst.ActiveTime {
		t.Fatalf("active_time: got %v, %v", m, err)
	}
	if m, err := burst.ParseDurationMethod(""); err != nil || m != burst.TotalTime {
		t.Fatalf("empty: got %v, %v", m, err)
	}
	if _, err := burst.ParseDurationMethod("wall_clock"); !errors.Is(err, burst.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}
