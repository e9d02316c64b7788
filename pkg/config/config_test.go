package config_test

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/handoff/pkg/config"
)

func TestConfig(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Config Suite")
}

var _ = Describe("Config", func() {
	var tmpDir string

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
	})

	Describe("LoadConfig", func() {
		It("returns defaults when no file exists", func() {
			cfger, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := cfger.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Lock.TimeoutMs).To(Equal(5000))
			Expect(cfg.Lock.RetryDelayMs).To(Equal(50))
			Expect(cfg.TTL.Checkpoint).To(Equal("24h"))
			Expect(cfg.TTL.Handoff).To(Equal("7d"))
			Expect(cfg.Exclude.Patterns).NotTo(BeEmpty())
		})

		It("merges file values over defaults", func() {
			content := "[ttl]\nhandoff = \"2w\"\n"
			Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(content), 0o600)).To(Succeed())

			cfger, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := cfger.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.TTL.Handoff).To(Equal("2w"))
			Expect(cfg.TTL.Checkpoint).To(Equal("24h"))
			Expect(cfg.Lock.TimeoutMs).To(Equal(5000))
		})
	})

	Describe("ParseConfigTOML", func() {
		It("rejects unsupported versions", func() {
			_, err := config.ParseConfigTOML([]byte("version = 42\n"))
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("unsupported config version"))
		})

		It("rejects malformed TOML", func() {
			_, err := config.ParseConfigTOML([]byte("[[[broken"))
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("SetConfigValue / GetConfigValue", func() {
		It("round-trips a string key", func() {
			cfger, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			Expect(cfger.SetConfigValue("ttl.handoff", "1m")).To(Succeed())

			value, err := cfger.GetConfigValue("ttl.handoff")
			Expect(err).NotTo(HaveOccurred())
			Expect(value).To(Equal("1m"))
		})

		It("round-trips an integer key", func() {
			cfger, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			Expect(cfger.SetConfigValue("lock.timeout_ms", "10000")).To(Succeed())

			value, err := cfger.GetConfigValue("lock.timeout_ms")
			Expect(err).NotTo(HaveOccurred())
			Expect(value).To(Equal("10000"))
		})

		It("round-trips the patterns list", func() {
			cfger, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			Expect(cfger.SetConfigValue("exclude.patterns", "*.pem, .env")).To(Succeed())

			value, err := cfger.GetConfigValue("exclude.patterns")
			Expect(err).NotTo(HaveOccurred())
			Expect(value).To(Equal("*.pem,.env"))
		})

		It("rejects unknown keys", func() {
			cfger, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			Expect(cfger.SetConfigValue("nope.nope", "x")).NotTo(Succeed())
			_, err = cfger.GetConfigValue("nope.nope")
			Expect(err).To(HaveOccurred())
		})

		It("rejects non-numeric values for integer keys", func() {
			cfger, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			Expect(cfger.SetConfigValue("lock.timeout_ms", "soon")).NotTo(Succeed())
		})
	})

	Describe("ValidConfigKeys", func() {
		It("lists every supported key", func() {
			keys := config.ValidConfigKeys()
			Expect(keys).To(ContainElements(
				"storage.dir",
				"storage.queue_dir",
				"lock.timeout_ms",
				"lock.retry_delay_ms",
				"ttl.checkpoint",
				"ttl.handoff",
				"exclude.patterns",
			))

			for _, k := range keys {
				Expect(config.IsValidConfigKey(k)).To(BeTrue())
			}
		})
	})

	Describe("InitViper", func() {
		It("applies defaults and env overrides", func() {
			GinkgoT().Setenv("HANDOFF_TTL_HANDOFF", "2w")

			v, err := config.InitViper(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg := config.FromViper(v)
			Expect(cfg.TTL.Handoff).To(Equal("2w"))
			Expect(cfg.Lock.TimeoutMs).To(Equal(5000))
		})

		It("reads values from config.toml", func() {
			content := "[lock]\ntimeout_ms = 1234\n"
			Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(content), 0o600)).To(Succeed())

			v, err := config.InitViper(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg := config.FromViper(v)
			Expect(cfg.Lock.TimeoutMs).To(Equal(1234))
		})
	})
})
