package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akio-byte/navaltutka/internal/validate"
)

func decodeInto(t *testing.T, body string, dst any) error {
	t.Helper()
	return validate.New().Decode(strings.NewReader(body), validate.DefaultMaxBytes, dst)
}

func TestChatRequestBounds(t *testing.T) {
	var ok ChatRequest
	require.NoError(t, decodeInto(t, `{"message":"hi","context":"c","contextRef":"1.0@x","historyDelta":[{"role":"assistant","content":"a"}],"stream":true}`, &ok))
	assert.True(t, ok.Stream)

	long := strings.Repeat("m", 2001)
	assert.ErrorIs(t, decodeInto(t, `{"message":"`+long+`"}`, &ChatRequest{}), validate.ErrInvalidInput)

	ctx := strings.Repeat("c", 12001)
	assert.ErrorIs(t, decodeInto(t, `{"message":"m","context":"`+ctx+`"}`, &ChatRequest{}), validate.ErrInvalidInput)

	turns := strings.Repeat(`{"role":"user","content":"x"},`, 9)
	turns = "[" + strings.TrimSuffix(turns, ",") + "]"
	assert.ErrorIs(t, decodeInto(t, `{"message":"m","historyDelta":`+turns+`}`, &ChatRequest{}), validate.ErrInvalidInput)
}

func TestBriefRequestNeedsTitledItem(t *testing.T) {
	require.NoError(t, decodeInto(t, `{"item":{"id":"e1","title":"T","sources":[]}}`, &BriefRequest{}))
	assert.ErrorIs(t, decodeInto(t, `{}`, &BriefRequest{}), validate.ErrInvalidInput)
	assert.ErrorIs(t, decodeInto(t, `{"item":{"id":"e1"}}`, &BriefRequest{}), validate.ErrInvalidInput)
}

func TestHorizonAndReportNeedSnapshot(t *testing.T) {
	require.NoError(t, decodeInto(t, `{"snapshot":{"items":[]}}`, &HorizonRequest{}))
	assert.ErrorIs(t, decodeInto(t, `{}`, &HorizonRequest{}), validate.ErrInvalidInput)
	assert.ErrorIs(t, decodeInto(t, `{"snapshot":{}}`, &HorizonRequest{}), validate.ErrInvalidInput)

	var report ReportRequest
	require.NoError(t, decodeInto(t, `{"snapshot":{"items":[]},"externalEvidence":[{"title":"t","url":"u","snippet":"s","publishedAtUtc":null}]}`, &report))
	assert.Len(t, report.ExternalEvidence, 1)
	assert.ErrorIs(t, decodeInto(t, `{"externalEvidence":[]}`, &ReportRequest{}), validate.ErrInvalidInput)

	// keys are required, empty strings are not rejected
	require.NoError(t, decodeInto(t, `{"snapshot":{"items":[]},"externalEvidence":[{"title":"","url":"","snippet":""}]}`, &ReportRequest{}))
	assert.ErrorIs(t, decodeInto(t, `{"snapshot":{"items":[]},"externalEvidence":[{"title":"t","url":"u"}]}`, &ReportRequest{}), validate.ErrInvalidInput)
	assert.ErrorIs(t, decodeInto(t, `{"snapshot":{"items":[]},"externalEvidence":[{"url":"u","snippet":"s"}]}`, &ReportRequest{}), validate.ErrInvalidInput)

	evidence := strings.Repeat(`{"title":"t","url":"u","snippet":"s"},`, 21)
	evidence = "[" + strings.TrimSuffix(evidence, ",") + "]"
	assert.ErrorIs(t, decodeInto(t, `{"snapshot":{"items":[]},"externalEvidence":`+evidence+`}`, &ReportRequest{}), validate.ErrInvalidInput)
}

func TestRankRequestBounds(t *testing.T) {
	require.NoError(t, decodeInto(t, `{"query":"carriers","itemsMini":[{"id":"a","t":"Title","s":"Summary","tags":["navy"]}]}`, &RankRequest{}))
	assert.ErrorIs(t, decodeInto(t, `{"query":"","itemsMini":[]}`, &RankRequest{}), validate.ErrInvalidInput)
	assert.ErrorIs(t, decodeInto(t, `{"query":"`+strings.Repeat("q", 121)+`","itemsMini":[]}`, &RankRequest{}), validate.ErrInvalidInput)
	assert.ErrorIs(t, decodeInto(t, `{"query":"q"}`, &RankRequest{}), validate.ErrInvalidInput)

	// an empty id is a string like any other
	require.NoError(t, decodeInto(t, `{"query":"q","itemsMini":[{"id":"","t":"","s":""}]}`, &RankRequest{}))

	items := strings.Repeat(`{"id":"a","t":"","s":""},`, 121)
	items = "[" + strings.TrimSuffix(items, ",") + "]"
	assert.ErrorIs(t, decodeInto(t, `{"query":"q","itemsMini":`+items+`}`, &RankRequest{}), validate.ErrInvalidInput)
}

func TestSearchRequestBounds(t *testing.T) {
	require.NoError(t, decodeInto(t, `{"query":"red sea"}`, &SearchRequest{}))
	assert.ErrorIs(t, decodeInto(t, `{"query":"`+strings.Repeat("q", 201)+`"}`, &SearchRequest{}), validate.ErrInvalidInput)
}
