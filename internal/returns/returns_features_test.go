package returns

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/cucumber/godog"

	"storepos/internal/domain"
)

type lateFeeTestContext struct {
	terms  Terms
	policy Policy
	quote  domain.LateFeeQuote
}

func newLateFeeTestContext() *lateFeeTestContext {
	return &lateFeeTestContext{}
}

func (c *lateFeeTestContext) reset() {
	c.terms = Terms{}
	c.policy = Policy{}
	c.quote = domain.LateFeeQuote{}
}

func (c *lateFeeTestContext) aRentalDueAtWithADepositOf(dueAt string, deposit int64) error {
	due, err := time.Parse(time.RFC3339, dueAt)
	if err != nil {
		return err
	}
	c.terms = Terms{RentalID: "r-1", DueDate: due, DepositCents: deposit}
	return nil
}

func (c *lateFeeTestContext) aLateFeeOfCentsPerDay(perDay int64) error {
	c.policy = Policy{LateFeePerDayCents: perDay}
	return nil
}

func (c *lateFeeTestContext) itIsReturnedAt(at string) error {
	returnedAt, err := time.Parse(time.RFC3339, at)
	if err != nil {
		return err
	}
	c.quote = Calculate(c.terms, returnedAt, c.policy)
	return nil
}

func (c *lateFeeTestContext) theReturnIsOnTime() error {
	if c.quote.IsLate || c.quote.DaysLate != 0 {
		return fmt.Errorf("expected on time, got %d days late", c.quote.DaysLate)
	}
	return nil
}

func (c *lateFeeTestContext) theReturnIsDaysLate(days int) error {
	if !c.quote.IsLate || c.quote.DaysLate != days {
		return fmt.Errorf("expected %d days late, got late=%v days=%d", days, c.quote.IsLate, c.quote.DaysLate)
	}
	return nil
}

func (c *lateFeeTestContext) theLateFeeIsCents(fee int64) error {
	if c.quote.LateFeeCents != fee {
		return fmt.Errorf("expected late fee %d, got %d", fee, c.quote.LateFeeCents)
	}
	return nil
}

func (c *lateFeeTestContext) theRefundIsCents(refund int64) error {
	if c.quote.RefundCents != refund {
		return fmt.Errorf("expected refund %d, got %d", refund, c.quote.RefundCents)
	}
	return nil
}

func (c *lateFeeTestContext) theCustomerOwesCents(owed int64) error {
	if got := c.quote.BalanceDueCents(); got != owed {
		return fmt.Errorf("expected balance due %d, got %d", owed, got)
	}
	return nil
}

func InitializeLateFeeScenario(ctx *godog.ScenarioContext) {
	tc := newLateFeeTestContext()

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tc.reset()
		return ctx, nil
	})

	ctx.Step(`^a rental due at "([^"]*)" with a deposit of (\d+) cents$`, tc.aRentalDueAtWithADepositOf)
	ctx.Step(`^a late fee of (\d+) cents per day$`, tc.aLateFeeOfCentsPerDay)
	ctx.Step(`^it is returned at "([^"]*)"$`, tc.itIsReturnedAt)
	ctx.Step(`^the return is on time$`, tc.theReturnIsOnTime)
	ctx.Step(`^the return is (\d+) days late$`, tc.theReturnIsDaysLate)
	ctx.Step(`^the late fee is (\d+) cents$`, tc.theLateFeeIsCents)
	ctx.Step(`^the refund is (-?\d+) cents$`, tc.theRefundIsCents)
	ctx.Step(`^the customer owes (\d+) cents$`, tc.theCustomerOwesCents)
}

func TestLateFeeFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeLateFeeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features/late_fee.feature"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
