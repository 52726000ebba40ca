package hydrokit_test

import (
	"time"

	"github.com/reef-pi/hydrokit/controller/modules/hydrokit"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type recordingSteps struct {
	fired []hydrokit.Phase
}

func (r *recordingSteps) IssueTempRead() { r.fired = append(r.fired, hydrokit.IssueTempRead) }
func (r *recordingSteps) RelayCompensation() {
	r.fired = append(r.fired, hydrokit.RelayCompensation)
}
func (r *recordingSteps) IssueConcentrationReads() {
	r.fired = append(r.fired, hydrokit.IssueConcentrationReads)
}
func (r *recordingSteps) ReportConcentrations() {
	r.fired = append(r.fired, hydrokit.ReportConcentrations)
}

var _ = Describe("Sequencer", func() {
	var (
		steps *recordingSteps
		seq   *hydrokit.Sequencer
		t0    time.Time
		at    func(ms int) time.Time
	)

	BeforeEach(func() {
		schedule, err := hydrokit.NewSchedule(time.Second, 300*time.Millisecond, 3*time.Second)
		Expect(err).NotTo(HaveOccurred())
		steps = &recordingSteps{}
		seq = hydrokit.NewSequencer(schedule, steps)
		t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
		at = func(ms int) time.Time { return t0.Add(time.Duration(ms) * time.Millisecond) }
	})

	expectFire := func(ms int, want hydrokit.Phase) {
		p, ok := seq.Tick(at(ms))
		ExpectWithOffset(1, ok).To(BeTrue(), "expected a phase at %dms", ms)
		ExpectWithOffset(1, p).To(Equal(want))
	}
	expectIdle := func(ms int) {
		_, ok := seq.Tick(at(ms))
		ExpectWithOffset(1, ok).To(BeFalse(), "expected no phase at %dms", ms)
	}

	When("ticked on the nominal schedule", func() {
		It("fires each phase once its delay has elapsed", func() {
			expectFire(0, hydrokit.IssueTempRead)
			expectIdle(999)
			expectFire(1000, hydrokit.RelayCompensation)
			expectIdle(1299)
			expectFire(1300, hydrokit.IssueConcentrationReads)
			expectIdle(2299)
			expectFire(2300, hydrokit.ReportConcentrations)
			expectIdle(2999)
			expectFire(3000, hydrokit.IssueTempRead)

			Expect(steps.fired).To(Equal([]hydrokit.Phase{
				hydrokit.IssueTempRead,
				hydrokit.RelayCompensation,
				hydrokit.IssueConcentrationReads,
				hydrokit.ReportConcentrations,
				hydrokit.IssueTempRead,
			}))
		})
	})

	When("ticked late", func() {
		It("fires at most one phase per tick and measures from the late fire", func() {
			expectFire(0, hydrokit.IssueTempRead)
			expectFire(10000, hydrokit.RelayCompensation)
			expectIdle(10299)
			expectFire(10300, hydrokit.IssueConcentrationReads)
			Expect(steps.fired).To(HaveLen(3))
		})
	})

	When("ticked every 100ms for many cycles", func() {
		It("keeps strict round robin order", func() {
			for ms := 0; ms < 30000; ms += 100 {
				seq.Tick(at(ms))
			}
			Expect(len(steps.fired)).To(BeNumerically(">=", 40))
			for i, p := range steps.fired {
				Expect(p).To(Equal(hydrokit.Phase(i % 4)))
			}
		})
	})

	Describe("Reset", func() {
		It("makes the first phase eligible immediately", func() {
			expectFire(0, hydrokit.IssueTempRead)
			expectFire(1000, hydrokit.RelayCompensation)
			seq.Reset()
			Expect(seq.Pending()).To(Equal(hydrokit.IssueTempRead))
			expectFire(1001, hydrokit.IssueTempRead)
		})

		It("is idempotent", func() {
			seq.Reset()
			seq.Reset()
			Expect(seq.Pending()).To(Equal(hydrokit.IssueTempRead))
			expectFire(0, hydrokit.IssueTempRead)
			expectIdle(500)
		})
	})

	Describe("NewSchedule", func() {
		It("derives the poll delay from the period", func() {
			s, err := hydrokit.NewSchedule(time.Second, 300*time.Millisecond, 3*time.Second)
			Expect(err).NotTo(HaveOccurred())
			Expect(s.After(hydrokit.ReportConcentrations)).To(Equal(700 * time.Millisecond))
			Expect(s.Period()).To(Equal(3 * time.Second))
		})

		It("rejects a period shorter than the settle delays", func() {
			_, err := hydrokit.NewSchedule(time.Second, 300*time.Millisecond, 2*time.Second)
			Expect(err).To(MatchError(ContainSubstring("shorter than its settle delays")))
		})

		It("rejects negative delays", func() {
			_, err := hydrokit.NewSchedule(-time.Second, 0, 3*time.Second)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Phase", func() {
		It("wraps after the last phase", func() {
			Expect(hydrokit.ReportConcentrations.Next()).To(Equal(hydrokit.IssueTempRead))
			Expect(hydrokit.RelayCompensation.String()).To(Equal("relay_compensation"))
		})
	})
})
