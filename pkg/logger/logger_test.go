package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/threadserve/pkg/logger"
)

var _ = Describe("Logger", func() {
	ctx := context.Background()

	Describe("New", func() {
		It("should create a dev logger", func() {
			Expect(logger.New("info", false, "dev")).NotTo(BeNil())
		})

		It("should create a prod logger with source", func() {
			Expect(logger.New("info", true, "prod")).NotTo(BeNil())
		})

		DescribeTable("level filtering",
			func(level string, enabled, disabled slog.Level) {
				log := logger.New(level, false, "dev")
				Expect(log.Enabled(ctx, enabled)).To(BeTrue())
				Expect(log.Enabled(ctx, disabled)).To(BeFalse())
			},
			Entry("debug", "debug", slog.LevelDebug, slog.LevelDebug-1),
			Entry("info", "info", slog.LevelInfo, slog.LevelDebug),
			Entry("warn", "warn", slog.LevelWarn, slog.LevelInfo),
			Entry("error", "error", slog.LevelError, slog.LevelWarn),
			Entry("unknown falls back to info", "verbose", slog.LevelInfo, slog.LevelDebug),
			Entry("upper case", "WARN", slog.LevelWarn, slog.LevelInfo),
		)
	})

	Describe("NewWithWriter", func() {
		var buf *bytes.Buffer

		BeforeEach(func() {
			buf = &bytes.Buffer{}
		})

		It("should write JSON with the environment in prod", func() {
			log := logger.NewWithWriter(buf, "info", false, "prod")
			log.Info("listening", slog.String("addr", "127.0.0.1:8080"))

			var record map[string]any
			Expect(json.Unmarshal(buf.Bytes(), &record)).To(Succeed())
			Expect(record).To(HaveKeyWithValue("msg", "listening"))
			Expect(record).To(HaveKeyWithValue("environment", "prod"))
			Expect(record).To(HaveKeyWithValue("addr", "127.0.0.1:8080"))
		})

		It("should write text outside prod", func() {
			log := logger.NewWithWriter(buf, "info", false, "staging")
			log.Info("listening")

			Expect(buf.String()).To(ContainSubstring("msg=listening"))
			Expect(buf.String()).To(ContainSubstring("environment=staging"))
		})

		It("should drop records below the level", func() {
			log := logger.NewWithWriter(buf, "warn", false, "dev")
			log.Info("quiet")
			Expect(buf.Len()).To(BeZero())
		})
	})

	Describe("Component", func() {
		It("should tag records with the component name", func() {
			buf := &bytes.Buffer{}
			log := logger.Component(logger.NewWithWriter(buf, "debug", false, "dev"), "workerpool")
			log.Debug("spawned worker")

			Expect(buf.String()).To(ContainSubstring("component=workerpool"))
			Expect(buf.String()).To(ContainSubstring("environment=dev"))
		})
	})
})
