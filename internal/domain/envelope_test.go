package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus_JSON(t *testing.T) {
	b, err := json.Marshal(Success("x"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"content":"x","status":"SUCCESS","message":"OK"}`, string(b))

	var r Response
	require.NoError(t, json.Unmarshal([]byte(`{"content":null,"status":"ERROR","message":"boom"}`), &r))
	assert.Equal(t, StatusError, r.Status)
	assert.Equal(t, "ERROR", r.Status.String())

	assert.Error(t, json.Unmarshal([]byte(`{"status":"MAYBE"}`), &r))
	assert.Equal(t, "Status(7)", Status(7).String())
}

func TestFailure_MessageNeverEmpty(t *testing.T) {
	r := Failure(nil)
	assert.False(t, r.OK())
	assert.Equal(t, "unknown error", r.Message)
	assert.Equal(t, KindInternal, r.Kind)

	r = Failure(errors.New(""))
	assert.Equal(t, "unknown error", r.Message)

	r = FailureWithContent(map[string]any{"url": "u"}, Dataf("no prices found"))
	assert.Equal(t, "no prices found", r.Message)
	assert.Equal(t, KindData, r.Kind)
	assert.Equal(t, map[string]any{"url": "u"}, r.Content)
}

func TestSuccessWithMessage_DefaultsToOK(t *testing.T) {
	assert.Equal(t, DefaultMessage, SuccessWithMessage(1, "").Message)
	assert.Equal(t, "sent", SuccessWithMessage(1, "sent").Message)
}

func TestResponse_ZeroValueIsNotSuccess(t *testing.T) {
	var r Response
	assert.False(t, r.OK())

	n := r.Normalize()
	assert.Equal(t, StatusError, n.Status)
	assert.Equal(t, KindInternal, n.Kind)
	assert.Equal(t, "agent returned invalid status Status(0)", n.Message)
}

func TestResponse_NormalizeFillsMessages(t *testing.T) {
	ok := Response{Status: StatusSuccess, Content: "x"}.Normalize()
	assert.Equal(t, DefaultMessage, ok.Message)
	assert.Equal(t, "x", ok.Content)

	bad := Response{Status: StatusError}.Normalize()
	assert.Equal(t, "unknown error", bad.Message)
	assert.Equal(t, KindInternal, bad.Kind)

	kept := Failure(Dataf("no prices found")).Normalize()
	assert.Equal(t, "no prices found", kept.Message)
	assert.Equal(t, KindData, kept.Kind)
}

func TestRequest_Args(t *testing.T) {
	assert.Nil(t, Request{Content: "bare"}.Args())
	assert.Equal(t, map[string]any{"a": 1}, Request{Content: map[string]any{"a": 1}}.Args())
}

func TestError_Text(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	assert.Equal(t, "dial tcp: refused", Transport(cause, "").Error())
	assert.Equal(t, "smtp: dial tcp: refused", Transport(cause, "smtp").Error())
	assert.Equal(t, "missing argument: to", Validationf("missing argument: %s", "to").Error())
	assert.ErrorIs(t, Protocol(cause, "decode"), cause)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, ErrorKind(""), KindOf(nil))
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
	wrapped := fmt.Errorf("agent: %w", Validationf("bad"))
	assert.Equal(t, KindValidation, KindOf(wrapped))
	assert.Equal(t, KindProtocol, KindOf(Protocol(errors.New("x"), "")))
}

func TestProduct_Flatten(t *testing.T) {
	p := Product{Description: "Silla", Price: "12,50", SKU: "A1"}
	p.SetTranslation("en", "Chair")
	p.SetTranslation("EN", "Seat")
	p.SetTranslation("fr", "Chaise")

	assert.Equal(t, map[string]any{
		"description":    "Silla",
		"price":          "12,50",
		"sku":            "A1",
		"description_EN": "Seat",
		"description_FR": "Chaise",
	}, p.Flatten())
}
