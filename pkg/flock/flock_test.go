package flock_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/handoff/pkg/flock"
)

func TestFlock(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Flock Suite")
}

var _ = Describe("Manager", func() {
	var dir string
	var m *flock.Manager

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		m = flock.NewManager(dir, nil)
	})

	Describe("Acquire", func() {
		It("creates a lock file holding a token", func() {
			Expect(m.Acquire("res", flock.Options{})).To(Succeed())

			data, err := os.ReadFile(m.Path("res"))
			Expect(err).NotTo(HaveOccurred())

			var token flock.Token
			Expect(json.Unmarshal(data, &token)).To(Succeed())
			Expect(token.PID).To(Equal(os.Getpid()))
			Expect(token.Resource).To(Equal("res"))
		})

		It("sanitizes resource names into safe filenames", func() {
			Expect(m.Acquire("rolling-a1b2/c3!d4", flock.Options{})).To(Succeed())
			Expect(m.Path("rolling-a1b2/c3!d4")).To(Equal(filepath.Join(dir, "rolling_a1b2_c3_d4.lock")))

			_, err := os.Stat(filepath.Join(dir, "rolling_a1b2_c3_d4.lock"))
			Expect(err).NotTo(HaveOccurred())
		})

		It("times out when the lock is held", func() {
			Expect(m.Acquire("res", flock.Options{})).To(Succeed())

			err := m.Acquire("res", flock.Options{
				Timeout:    100 * time.Millisecond,
				RetryDelay: 10 * time.Millisecond,
			})
			Expect(err).To(BeAssignableToTypeOf(flock.ErrLockTimeout{}))
			Expect(err.Error()).To(ContainSubstring("res"))
		})

		It("never lets two concurrent acquirers both succeed", func() {
			const n = 10
			var held atomic.Int32
			var wg sync.WaitGroup

			for range n {
				wg.Add(1)
				go func() {
					defer wg.Done()
					defer GinkgoRecover()

					err := m.Acquire("shared", flock.Options{
						Timeout:    5 * time.Second,
						RetryDelay: 5 * time.Millisecond,
					})
					Expect(err).NotTo(HaveOccurred())

					Expect(held.Add(1)).To(Equal(int32(1)))
					time.Sleep(2 * time.Millisecond)
					held.Add(-1)

					Expect(m.Release("shared")).To(Succeed())
				}()
			}

			wg.Wait()
		})

		It("forcibly takes over a stale lock", func() {
			token := flock.Token{
				PID:       99999,
				Timestamp: time.Now().Add(-time.Hour),
				Resource:  "res",
			}
			data, err := json.Marshal(token)
			Expect(err).NotTo(HaveOccurred())
			Expect(os.WriteFile(m.Path("res"), data, 0o600)).To(Succeed())

			Expect(m.Acquire("res", flock.Options{
				Timeout:    200 * time.Millisecond,
				RetryDelay: 10 * time.Millisecond,
			})).To(Succeed())
		})

		It("treats a corrupt lock file as held, not stale", func() {
			Expect(os.WriteFile(m.Path("res"), []byte("not json"), 0o600)).To(Succeed())

			err := m.Acquire("res", flock.Options{
				Timeout:    100 * time.Millisecond,
				RetryDelay: 10 * time.Millisecond,
			})
			Expect(err).To(BeAssignableToTypeOf(flock.ErrLockTimeout{}))

			// The corrupt file is still there: acquisition never deleted it.
			_, statErr := os.Stat(m.Path("res"))
			Expect(statErr).NotTo(HaveOccurred())
		})
	})

	Describe("Release", func() {
		It("is idempotent", func() {
			Expect(m.Acquire("res", flock.Options{})).To(Succeed())
			Expect(m.Release("res")).To(Succeed())
			Expect(m.Release("res")).To(Succeed())
		})
	})

	Describe("WithLock", func() {
		It("returns fn's result and releases the lock", func() {
			called := false
			err := m.WithLock("res", flock.Options{}, func() error {
				called = true
				return nil
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(called).To(BeTrue())

			_, statErr := os.Stat(m.Path("res"))
			Expect(os.IsNotExist(statErr)).To(BeTrue())
		})

		It("releases the lock when fn fails", func() {
			err := m.WithLock("res", flock.Options{}, func() error {
				return os.ErrInvalid
			})
			Expect(err).To(MatchError(os.ErrInvalid))

			Expect(m.Acquire("res", flock.Options{Timeout: 100 * time.Millisecond})).To(Succeed())
		})

		It("releases the lock when fn panics", func() {
			Expect(func() {
				_ = m.WithLock("res", flock.Options{}, func() error {
					panic("boom")
				})
			}).To(PanicWith("boom"))

			Expect(m.Acquire("res", flock.Options{Timeout: 100 * time.Millisecond})).To(Succeed())
		})
	})
})
