package message

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestResponseJSON(t *testing.T) {
	tests := []struct {
		name string
		resp Response
		want string
	}{
		{
			name: "empty scan",
			resp: NewScanResult(ScanResult{Threshold: 20}),
			want: `{"type":"scan-result","groups":[],"threshold":20}`,
		},
		{
			name: "scan",
			resp: NewScanResult(ScanResult{
				Groups: []Group{{
					Representative: "FF0000",
					Members:        []Member{{Hex: "FF0000", Count: 1}, {Hex: "FE0101", Count: 1}},
					TotalCount:     2,
				}},
				Threshold: 20,
			}),
			want: `{"type":"scan-result","groups":[{"representative":"FF0000","members":[{"hex":"FF0000","count":1},{"hex":"FE0101","count":1}],"totalCount":2}],"threshold":20}`,
		},
		{
			name: "merge",
			resp: NewMergeDone(MergeDone{Changed: 2, StyleCreated: true, StyleName: "Brand"}),
			want: `{"type":"merge-done","changed":2,"styleCreated":true,"styleName":"Brand"}`,
		},
		{
			name: "error",
			resp: NewError(errors.New("boom")),
			want: `{"type":"error","message":"boom"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := json.Marshal(tt.resp)
			if err != nil {
				t.Fatal(err)
			}
			if string(got) != tt.want {
				t.Errorf("json = %s\nwant   %s", got, tt.want)
			}
		})
	}
}

func TestRequestJSON(t *testing.T) {
	var req Request
	in := `{"type":"merge","threshold":0,"groupIndices":[0,3],"targetHex":"#00FF00","styleName":"Accent"}`
	if err := json.Unmarshal([]byte(in), &req); err != nil {
		t.Fatal(err)
	}
	zero := 0.0
	want := Request{Type: TypeMerge, Threshold: &zero, GroupIndices: []int{0, 3}, TargetHex: "#00FF00", StyleName: "Accent"}
	if diff := cmp.Diff(want, req); diff != "" {
		t.Errorf("request (-want +got):\n%s", diff)
	}

	var bare Request
	if err := json.Unmarshal([]byte(`{"type":"scan"}`), &bare); err != nil {
		t.Fatal(err)
	}
	if bare.Threshold != nil {
		t.Errorf("Threshold = %v, want nil when absent", *bare.Threshold)
	}
}
