package history

import (
	"context"
	"errors"
	"testing"

	"paperchat/internal/entity"
	"paperchat/internal/mocks"
	"paperchat/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestLoadUsesDetailWithoutRequest(t *testing.T) {
	authority := new(mocks.Authority)
	detail := &entity.ChatSession{
		Id:       "S2",
		Messages: []entity.ChatMessage{{Text: "q", IsUser: true}, {Text: "a"}},
	}

	got := NewLoader(authority, logger.NewNopLogger()).Load(context.Background(), "S2", detail)

	assert.Equal(t, detail.Messages, got)
	authority.AssertNotCalled(t, "FetchSessionByID", mock.Anything, mock.Anything)
}

func TestLoadFetchesOnceWithoutDetail(t *testing.T) {
	authority := new(mocks.Authority)
	authority.On("FetchSessionByID", mock.Anything, "S4").
		Return(&entity.ChatSession{Id: "S4", Messages: []entity.ChatMessage{{Text: "hello", IsUser: true}}}, nil).Once()

	got := NewLoader(authority, logger.NewNopLogger()).Load(context.Background(), "S4", &entity.ChatSession{Id: "S4"})

	assert.Len(t, got, 1)
	authority.AssertExpectations(t)
}

func TestLoadFailureGivesEmptyHistory(t *testing.T) {
	authority := new(mocks.Authority)
	authority.On("FetchSessionByID", mock.Anything, "S4").Return(nil, errors.New("boom"))

	got := NewLoader(authority, logger.NewNopLogger()).Load(context.Background(), "S4", nil)

	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestLoadWithoutSession(t *testing.T) {
	authority := new(mocks.Authority)

	got := NewLoader(authority, logger.NewNopLogger()).Load(context.Background(), "", nil)

	assert.Empty(t, got)
	authority.AssertNotCalled(t, "FetchSessionByID", mock.Anything, mock.Anything)
}
