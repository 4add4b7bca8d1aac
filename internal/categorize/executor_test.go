package categorize

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/sqp-cli/pkg/anthropic"
)

const (
	testModel    = "claude-sonnet-4-5-20250929"
	testFallback = "claude-haiku-4-5-20251001"
)

func TestClassifyBatch_MapsQueries(t *testing.T) {
	client := new(mockAnthropicClient)
	client.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return req.Model == testModel
	})).Return(textResponse(testModel, `{"bento box": "Bento", "nike lunch bag": "Branded: Nike"}`), nil)

	exec := NewExecutor(client, testModel, testFallback, 4096)
	got, err := exec.ClassifyBatch(context.Background(), []string{"bento box", "nike lunch bag"})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"bento box":      "Bento",
		"nike lunch bag": "Branded: Nike",
	}, got)
	client.AssertExpectations(t)
}

func TestClassifyBatch_StripsCodeFences(t *testing.T) {
	client := new(mockAnthropicClient)
	client.On("CreateMessage", mock.Anything, mock.Anything).
		Return(textResponse(testModel, "```json\n{\"bento box\": \"Bento\"}\n```"), nil)

	exec := NewExecutor(client, testModel, testFallback, 4096)
	got, err := exec.ClassifyBatch(context.Background(), []string{"bento box"})
	require.NoError(t, err)
	assert.Equal(t, "Bento", got["bento box"])
}

// Queries the model skips come back as the sentinel; keys outside the input
// are dropped. The result always covers exactly the input.
func TestClassifyBatch_FillsGapsAndDropsExtras(t *testing.T) {
	client := new(mockAnthropicClient)
	client.On("CreateMessage", mock.Anything, mock.Anything).
		Return(textResponse(testModel, `{"bento box": "Bento", "unrelated": "Noise"}`), nil)

	exec := NewExecutor(client, testModel, testFallback, 4096)
	got, err := exec.ClassifyBatch(context.Background(), []string{"bento box", "lunch box", "thermos"})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"bento box": "Bento",
		"lunch box": Uncategorized,
		"thermos":   Uncategorized,
	}, got)
}

func TestClassifyBatch_MalformedResponse(t *testing.T) {
	client := new(mockAnthropicClient)
	client.On("CreateMessage", mock.Anything, mock.Anything).
		Return(textResponse(testModel, "here are your categories: bento box -> Bento"), nil)

	exec := NewExecutor(client, testModel, testFallback, 4096)
	got, err := exec.ClassifyBatch(context.Background(), []string{"bento box"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"bento box": Uncategorized}, got)
}

func TestClassifyBatch_FallbackModel(t *testing.T) {
	client := new(mockAnthropicClient)
	client.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return req.Model == testModel
	})).Return(nil, eris.New("overloaded")).Once()
	client.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return req.Model == testFallback
	})).Return(textResponse(testFallback, `{"bento box": "Bento"}`), nil).Once()

	exec := NewExecutor(client, testModel, testFallback, 4096)
	got, err := exec.ClassifyBatch(context.Background(), []string{"bento box"})
	require.NoError(t, err)
	assert.Equal(t, "Bento", got["bento box"])
	client.AssertExpectations(t)
}

func TestClassifyBatch_BothModelsFail(t *testing.T) {
	client := new(mockAnthropicClient)
	client.On("CreateMessage", mock.Anything, mock.Anything).
		Return(nil, eris.New("overloaded")).Twice()

	exec := NewExecutor(client, testModel, testFallback, 4096)
	got, err := exec.ClassifyBatch(context.Background(), []string{"bento box", "lunch box"})

	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"bento box": Uncategorized,
		"lunch box": Uncategorized,
	}, got)
	client.AssertExpectations(t)
}

func TestClassifyBatch_EmptyInput(t *testing.T) {
	client := new(mockAnthropicClient)

	exec := NewExecutor(client, testModel, testFallback, 4096)
	got, err := exec.ClassifyBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
	client.AssertNotCalled(t, "CreateMessage")
}

func TestClassifyBatch_EmptyCategoryTreatedAsMissing(t *testing.T) {
	client := new(mockAnthropicClient)
	client.On("CreateMessage", mock.Anything, mock.Anything).
		Return(textResponse(testModel, `{"bento box": ""}`), nil)

	exec := NewExecutor(client, testModel, testFallback, 4096)
	got, err := exec.ClassifyBatch(context.Background(), []string{"bento box"})
	require.NoError(t, err)
	assert.Equal(t, Uncategorized, got["bento box"])
}
