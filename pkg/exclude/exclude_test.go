package exclude_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/handoff/pkg/exclude"
)

func TestExclude(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Exclude Suite")
}

var _ = Describe("ShouldExclude", func() {
	It("matches doublestar patterns against full paths", func() {
		Expect(exclude.ShouldExclude("/p/secrets/token.txt", []string{"**/secrets/**"})).To(BeTrue())
		Expect(exclude.ShouldExclude("/p/src/main.go", []string{"**/secrets/**"})).To(BeFalse())
	})

	It("matches base names", func() {
		Expect(exclude.ShouldExclude("/deep/nested/.env", []string{".env"})).To(BeTrue())
		Expect(exclude.ShouldExclude("/p/key.pem", []string{"*.pem"})).To(BeTrue())
	})

	It("returns false with no patterns", func() {
		Expect(exclude.ShouldExclude("/anything", nil)).To(BeFalse())
	})

	It("skips invalid patterns", func() {
		Expect(exclude.ShouldExclude("/p/a.go", []string{"[", ""})).To(BeFalse())
	})

	It("excludes env variants via the defaults", func() {
		Expect(exclude.ShouldExclude("/p/.env.local", exclude.DefaultPatterns)).To(BeTrue())
		Expect(exclude.ShouldExclude("/p/internal/store.go", exclude.DefaultPatterns)).To(BeFalse())
	})
})

var _ = Describe("Filter", func() {
	It("drops matching items and preserves order", func() {
		paths := []string{"/p/a.go", "/p/.env", "/p/b.go"}
		kept := exclude.Filter(paths, func(s string) string { return s }, []string{".env"})
		Expect(kept).To(Equal([]string{"/p/a.go", "/p/b.go"}))
	})

	It("returns the input unchanged with no patterns", func() {
		paths := []string{"/p/a.go"}
		Expect(exclude.Filter(paths, func(s string) string { return s }, nil)).To(Equal(paths))
	})
})
