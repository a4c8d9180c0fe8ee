package audit

import (
	"fmt"
	"strings"
	"time"

	"github.com/tos-network/gaudit/core/types"
)

// Identity is an authenticated caller. The service trusts the role it
// carries.
type Identity struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Intake is a traceability event entered by a submitter.
type Intake struct {
	Batch       string                 `json:"batch"`
	Responsible string                 `json:"responsible"`
	Stage       string                 `json:"stage"`
	Extra       map[string]interface{} `json:"extra,omitempty"`
}

// Transaction validates the intake and builds the transaction sent by
// sender. Extra fields are carried in the payload unless they collide with
// the fixed ones.
func (in Intake) Transaction(sender string, now time.Time) (*types.Transaction, error) {
	var missing []string
	if strings.TrimSpace(in.Batch) == "" {
		missing = append(missing, "batch")
	}
	if strings.TrimSpace(in.Responsible) == "" {
		missing = append(missing, "responsible")
	}
	if strings.TrimSpace(in.Stage) == "" {
		missing = append(missing, "stage")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", ErrInvalidIntake, strings.Join(missing, ", "))
	}
	payload := make(map[string]interface{}, len(in.Extra)+3)
	for k, v := range in.Extra {
		payload[k] = v
	}
	payload["batch"] = in.Batch
	payload["responsible"] = in.Responsible
	payload["stage"] = in.Stage
	return types.NewTransaction(sender, RoleSubmitter, payload, now), nil
}
