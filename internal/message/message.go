// Package message defines the JSON payloads exchanged with a UI over the
// session message channel.
package message

// Request types.
const (
	TypeScan  = "scan"
	TypeMerge = "merge"
	TypeClose = "close"
)

// Response types.
const (
	TypeScanResult = "scan-result"
	TypeMergeDone  = "merge-done"
	TypeError      = "error"
)

// Request is a message from the UI. Threshold is nil when the UI did not send one.
type Request struct {
	Type         string   `json:"type" yaml:"type"`
	Threshold    *float64 `json:"threshold,omitempty" yaml:"threshold,omitempty"`
	GroupIndices []int    `json:"groupIndices,omitempty" yaml:"groupIndices,omitempty"`
	TargetHex    string   `json:"targetHex,omitempty" yaml:"targetHex,omitempty"`
	StyleName    string   `json:"styleName,omitempty" yaml:"styleName,omitempty"`
}

// Member is one color key of a group and how many slots use it.
type Member struct {
	Hex   string `json:"hex" yaml:"hex"`
	Count int    `json:"count" yaml:"count"`
}

// Group is one cluster as shown to the UI.
type Group struct {
	Representative string   `json:"representative" yaml:"representative"`
	Members        []Member `json:"members" yaml:"members"`
	TotalCount     int      `json:"totalCount" yaml:"totalCount"`
}

// ScanResult is the body of a scan-result response.
type ScanResult struct {
	Groups    []Group `json:"groups" yaml:"groups"`
	Threshold float64 `json:"threshold" yaml:"threshold"`
}

// MergeDone is the body of a merge-done response.
type MergeDone struct {
	Changed      int    `json:"changed" yaml:"changed"`
	StyleCreated bool   `json:"styleCreated" yaml:"styleCreated"`
	StyleName    string `json:"styleName" yaml:"styleName"`
}

// Error is the body of an error response.
type Error struct {
	Message string `json:"message" yaml:"message"`
}

// Response is a message to the UI. Exactly one body is set, matching Type;
// its fields are flattened next to "type" when encoded.
type Response struct {
	Type string `json:"type"`
	*ScanResult
	*MergeDone
	*Error
}

// NewScanResult wraps a scan result body.
func NewScanResult(r ScanResult) Response {
	if r.Groups == nil {
		r.Groups = []Group{}
	}
	return Response{Type: TypeScanResult, ScanResult: &r}
}

// NewMergeDone wraps a merge result body.
func NewMergeDone(d MergeDone) Response {
	return Response{Type: TypeMergeDone, MergeDone: &d}
}

// NewError wraps an error message.
func NewError(err error) Response {
	return Response{Type: TypeError, Error: &Error{Message: err.Error()}}
}
