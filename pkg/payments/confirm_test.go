package payments

import (
	"errors"
	"strings"
	"testing"
)

func TestBegin_OnlyFromIdleOrFailed(t *testing.T) {
	cases := []struct {
		state  ConfirmState
		wantOK bool
	}{
		{ConfirmIdle, true},
		{ConfirmFailed, true},
		{ConfirmProcessing, false},
		{ConfirmCompleted, false},
	}
	for _, tc := range cases {
		c := NewConfirmation("pi_1")
		c.State = tc.state
		next, ok := Begin(c)
		if ok != tc.wantOK {
			t.Fatalf("state %s: expected ok=%v, got %v", tc.state, tc.wantOK, ok)
		}
		if ok && next.State != ConfirmProcessing {
			t.Fatalf("state %s: expected processing, got %s", tc.state, next.State)
		}
		if !ok && next.State != tc.state {
			t.Fatalf("state %s: refused begin must not change state, got %s", tc.state, next.State)
		}
	}
}

func TestBegin_SecondSubmitWhileProcessingIsRefused(t *testing.T) {
	c, ok := Begin(NewConfirmation("pi_1"))
	if !ok {
		t.Fatal("first begin should succeed")
	}
	if _, ok := Begin(c); ok {
		t.Fatal("second begin while processing must be refused")
	}
}

func TestResolve_Statuses(t *testing.T) {
	cases := []struct {
		status      Status
		wantState   ConfirmState
		wantSupport bool
	}{
		{StatusSucceeded, ConfirmCompleted, false},
		{StatusRequiresCapture, ConfirmCompleted, false},
		{StatusProcessing, ConfirmProcessing, false},
		{StatusRequiresAction, ConfirmProcessing, false},
		{StatusCanceled, ConfirmFailed, false},
		{StatusRequiresPaymentMethod, ConfirmFailed, false},
		{Status("mystery"), ConfirmFailed, true},
	}
	for _, tc := range cases {
		got := Resolve(NewConfirmation("pi_1"), tc.status)
		if got.State != tc.wantState {
			t.Fatalf("%s: expected state %s, got %s", tc.status, tc.wantState, got.State)
		}
		if got.NeedsSupport != tc.wantSupport {
			t.Fatalf("%s: expected needs_support=%v", tc.status, tc.wantSupport)
		}
	}
}

func TestResolve_CanceledMessage(t *testing.T) {
	c, _ := Begin(NewConfirmation("pi_1"))
	got := Resolve(c, StatusCanceled)
	if got.Message != MsgCanceled {
		t.Fatalf("expected %q, got %q", MsgCanceled, got.Message)
	}
	if got.Succeeded() {
		t.Fatal("canceled confirmation must not report success")
	}
	if !got.Canceled() {
		t.Fatal("expected canceled confirmation")
	}
}

func TestBegin_RefusesCanceledAuthorization(t *testing.T) {
	c, _ := Begin(NewConfirmation("pi_1"))
	c = Settle(c, &Authorization{ID: "pi_1", Status: StatusCanceled}, nil)

	next, ok := Begin(c)
	if ok {
		t.Fatal("canceled authorization must not be confirmed again")
	}
	if next != c {
		t.Fatalf("refused begin must not change confirmation, got %+v", next)
	}

	if _, ok := Begin(NewConfirmation("pi_2")); !ok {
		t.Fatal("a fresh authorization should be confirmable")
	}
}

func TestBegin_RetryAfterDeclineIsAllowed(t *testing.T) {
	c, _ := Begin(NewConfirmation("pi_1"))
	c = Settle(c, &Authorization{ID: "pi_1", Status: StatusRequiresPaymentMethod}, nil)
	if _, ok := Begin(c); !ok {
		t.Fatal("declined card should be retryable on the same authorization")
	}
}

func TestResolve_UnknownStatusNamesStatus(t *testing.T) {
	got := Resolve(NewConfirmation("pi_1"), Status("blocked"))
	if !strings.Contains(got.Message, "blocked") {
		t.Fatalf("expected message to include status, got %q", got.Message)
	}
}

func TestSettle_CardErrorVerbatim(t *testing.T) {
	c, _ := Begin(NewConfirmation("pi_1"))
	err := &GatewayError{Kind: KindCard, Message: "Your card was declined."}
	got := Settle(c, nil, err)
	if got.State != ConfirmFailed || got.Message != "Your card was declined." {
		t.Fatalf("unexpected confirmation: %+v", got)
	}
}

func TestSettle_OtherErrorGeneric(t *testing.T) {
	c, _ := Begin(NewConfirmation("pi_1"))
	got := Settle(c, nil, errors.New("connection reset"))
	if got.State != ConfirmFailed || got.Message != MsgGenericFailure {
		t.Fatalf("unexpected confirmation: %+v", got)
	}
}

func TestSettle_Success(t *testing.T) {
	c, _ := Begin(NewConfirmation("pi_1"))
	got := Settle(c, &Authorization{ID: "pi_1", Status: StatusRequiresCapture}, nil)
	if !got.Succeeded() || got.Pending() {
		t.Fatalf("expected completed, got %+v", got)
	}
}

func TestValidateCreate(t *testing.T) {
	for _, amt := range []int64{0, -5} {
		if err := validateCreate(CreateRequest{Amount: amt}); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("amount %d: expected ErrInvalidAmount, got %v", amt, err)
		}
	}
	if err := validateCreate(CreateRequest{Amount: 100}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
