package wizard

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestSessionJSON_CanConfirm(t *testing.T) {
	s := atPayment(t)
	out, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(out), `"can_confirm":false`) {
		t.Fatalf("expected can_confirm false before mount, got %s", out)
	}
	if !strings.Contains(string(out), `"step":"payment"`) {
		t.Fatalf("expected step name, got %s", out)
	}

	s = mustReduce(t, s, PaymentMounted{AuthorizationID: "pi_1", ClientSecret: "pi_1_secret"})
	out, err = json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(out), `"can_confirm":true`) {
		t.Fatalf("expected can_confirm true after mount, got %s", out)
	}
	if strings.Contains(string(out), sig) {
		t.Fatal("signature data must not be serialized")
	}
}
