package queue_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/handoff/pkg/checkpoint"
	"github.com/papercomputeco/handoff/pkg/queue"
	"github.com/papercomputeco/handoff/pkg/store"
)

var _ = Describe("Processor", func() {
	var storeDir, queueDir string
	var s *store.Store
	var q *queue.Queue
	var p *queue.Processor

	staticBranch := func(string) string { return "main" }

	BeforeEach(func() {
		storeDir = GinkgoT().TempDir()
		queueDir = GinkgoT().TempDir()

		var err error
		s, err = store.New(storeDir)
		Expect(err).NotTo(HaveOccurred())
		q, err = queue.New(queueDir, nil)
		Expect(err).NotTo(HaveOccurred())

		p = queue.NewProcessor(q, s, queue.WithBranchLookup(staticBranch))
	})

	Describe("Drain", func() {
		It("processes nothing on an empty queue", func() {
			result := p.Drain()
			Expect(result.Processed).To(Equal(0))
			Expect(result.Errors).To(Equal(0))
			Expect(result.ByProject).To(BeEmpty())
		})

		It("replays a file update into the rolling checkpoint and removes the entry", func() {
			_, err := q.Enqueue("/p", queue.UpdateFile, queue.FilePayload{Path: "/a.go", Role: "created"})
			Expect(err).NotTo(HaveOccurred())

			result := p.Drain()
			Expect(result.Processed).To(Equal(1))
			Expect(result.Errors).To(Equal(0))
			Expect(result.ByProject).To(HaveKeyWithValue("/p", 1))

			cp := s.ReadRolling(checkpoint.ProjectHash("/p"))
			Expect(cp).NotTo(BeNil())
			Expect(cp.Context.Files).To(HaveLen(1))
			Expect(cp.Context.Files[0].Path).To(Equal("/a.go"))

			entries, _, err := q.DrainList()
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(BeEmpty())
		})

		It("applies a project's entries in timestamp order", func() {
			// Same path, two roles; the later timestamp must win.
			write := func(name string, ts time.Time, role string) {
				payload, err := json.Marshal(queue.FilePayload{Path: "/a.go", Role: role})
				Expect(err).NotTo(HaveOccurred())
				entry := queue.Entry{
					ID:          name,
					Timestamp:   ts,
					ProjectRoot: "/p",
					Type:        queue.UpdateFile,
					Payload:     payload,
				}
				data, err := json.Marshal(entry)
				Expect(err).NotTo(HaveOccurred())
				Expect(os.WriteFile(filepath.Join(queueDir, name+".json"), data, 0o600)).To(Succeed())
			}

			now := time.Now().UTC()
			// Filename order contradicts timestamp order on purpose.
			write("0-modified", now, "modified")
			write("9-created", now.Add(-time.Minute), "created")

			result := p.Drain()
			Expect(result.Processed).To(Equal(2))

			cp := s.ReadRolling(checkpoint.ProjectHash("/p"))
			Expect(cp.Context.Files).To(HaveLen(1))
			Expect(cp.Context.Files[0].Role).To(Equal("modified"))
		})

		It("infers the task from the first in_progress todo", func() {
			_, err := q.Enqueue("/p", queue.UpdateTodo, queue.TodoPayload{
				Todos: []checkpoint.TodoItem{
					{Content: "done thing", Status: checkpoint.TodoCompleted},
					{Content: "current thing", Status: checkpoint.TodoInProgress, ActiveForm: "Doing current thing"},
				},
			})
			Expect(err).NotTo(HaveOccurred())

			result := p.Drain()
			Expect(result.Processed).To(Equal(1))

			cp := s.ReadRolling(checkpoint.ProjectHash("/p"))
			Expect(cp.Todos).To(HaveLen(2))
			Expect(cp.Context.Task).To(Equal("Doing current thing"))
		})

		It("infers the task from the plan's first heading", func() {
			_, err := q.Enqueue("/p", queue.UpdatePlan, queue.PlanPayload{
				Path:    "/p/PLAN.md",
				Content: "preamble\n## Ship the thing\ndetails",
			})
			Expect(err).NotTo(HaveOccurred())

			result := p.Drain()
			Expect(result.Processed).To(Equal(1))

			cp := s.ReadRolling(checkpoint.ProjectHash("/p"))
			Expect(cp.Context.Plan).NotTo(BeNil())
			Expect(cp.Context.Task).To(Equal("Ship the thing"))
		})

		It("expands multi-decision payloads one decision at a time", func() {
			_, err := q.Enqueue("/p", queue.UpdateUserDecision, queue.DecisionPayload{
				Decisions: []checkpoint.UserDecision{
					{Question: "q1", Answer: "a1"},
					{Question: "q2", Answer: "a2"},
				},
			})
			Expect(err).NotTo(HaveOccurred())

			result := p.Drain()
			Expect(result.Processed).To(Equal(1))

			cp := s.ReadRolling(checkpoint.ProjectHash("/p"))
			Expect(cp.Context.UserDecisions).To(HaveLen(2))
		})

		It("does not duplicate decisions when an entry is replayed", func() {
			payload, err := json.Marshal(queue.DecisionPayload{
				Decisions: []checkpoint.UserDecision{{Question: "q", Answer: "a"}},
			})
			Expect(err).NotTo(HaveOccurred())
			entry := queue.Entry{
				ID:          "replayed",
				Timestamp:   time.Now().UTC(),
				ProjectRoot: "/p",
				Type:        queue.UpdateUserDecision,
				Payload:     payload,
			}
			data, err := json.Marshal(entry)
			Expect(err).NotTo(HaveOccurred())

			// Simulate a crash between apply and removal: the same entry
			// file shows up in two consecutive drains.
			Expect(os.WriteFile(filepath.Join(queueDir, "1-replayed.json"), data, 0o600)).To(Succeed())
			p.Drain()
			Expect(os.WriteFile(filepath.Join(queueDir, "1-replayed.json"), data, 0o600)).To(Succeed())
			p.Drain()

			cp := s.ReadRolling(checkpoint.ProjectHash("/p"))
			Expect(cp.Context.UserDecisions).To(HaveLen(1))
		})

		It("isolates a bad entry without blocking the rest", func() {
			bad := queue.Entry{
				ID:          "bad",
				Timestamp:   time.Now().UTC().Add(-time.Minute),
				ProjectRoot: "/p",
				Type:        "mystery",
			}
			data, err := json.Marshal(bad)
			Expect(err).NotTo(HaveOccurred())
			Expect(os.WriteFile(filepath.Join(queueDir, "0-bad.json"), data, 0o600)).To(Succeed())

			_, err = q.Enqueue("/p", queue.UpdateFile, queue.FilePayload{Path: "/ok.go", Role: "created"})
			Expect(err).NotTo(HaveOccurred())

			result := p.Drain()
			Expect(result.Processed).To(Equal(1))
			Expect(result.Errors).To(Equal(1))

			// The bad entry stays queued for a future drain (or orphan cleanup).
			entries, _, err := q.DrainList()
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(1))
			Expect(entries[0].ID).To(Equal("bad"))
		})
	})
})

var _ = Describe("Recorder", func() {
	var storeDir, queueDir string
	var s *store.Store
	var q *queue.Queue
	var r *queue.Recorder

	staticBranch := func(string) string { return "main" }

	BeforeEach(func() {
		storeDir = GinkgoT().TempDir()
		queueDir = GinkgoT().TempDir()

		var err error
		s, err = store.New(storeDir)
		Expect(err).NotTo(HaveOccurred())
		q, err = queue.New(queueDir, nil)
		Expect(err).NotTo(HaveOccurred())

		r = queue.NewRecorder(s, q, staticBranch, nil)
	})

	It("writes straight to the store when reachable", func() {
		Expect(r.RecordFile("/p", checkpoint.FileRef{Path: "/a.go", Role: "created"})).To(Succeed())

		cp := s.ReadRolling(checkpoint.ProjectHash("/p"))
		Expect(cp).NotTo(BeNil())
		Expect(cp.Context.Files).To(HaveLen(1))

		entries, _, err := q.DrainList()
		Expect(err).NotTo(HaveOccurred())
		Expect(entries).To(BeEmpty())
	})

	It("falls back to the queue on permission failure", func() {
		if os.Geteuid() == 0 {
			Skip("directory permissions are not enforced for root")
		}

		// Revoke write permission on the storage dir so the locked update
		// cannot create its lock or temp file.
		Expect(os.Chmod(storeDir, 0o500)).To(Succeed())
		DeferCleanup(func() {
			Expect(os.Chmod(storeDir, 0o755)).To(Succeed())
		})

		Expect(r.RecordFile("/p", checkpoint.FileRef{Path: "/a.go", Role: "created"})).To(Succeed())

		entries, _, err := q.DrainList()
		Expect(err).NotTo(HaveOccurred())
		Expect(entries).To(HaveLen(1))
		Expect(entries[0].Type).To(Equal(queue.UpdateFile))
		Expect(entries[0].ProjectRoot).To(Equal("/p"))
	})

	It("records todos with an inferred task", func() {
		Expect(r.RecordTodos("/p", []checkpoint.TodoItem{
			{Content: "fix tests", Status: checkpoint.TodoInProgress},
		})).To(Succeed())

		cp := s.ReadRolling(checkpoint.ProjectHash("/p"))
		Expect(cp.Context.Task).To(Equal("fix tests"))
	})
})
