package session_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ggmemo/ggmemo/internal/apperr"
	"github.com/ggmemo/ggmemo/internal/domain/memo"
	"github.com/ggmemo/ggmemo/internal/domain/session"
	"github.com/ggmemo/ggmemo/internal/repository"
	"github.com/ggmemo/ggmemo/internal/repository/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newService(sessions *mocks.SessionRepository, memos *mocks.MemoRepository) *session.Service {
	return session.NewService(sessions, memos, nil,
		session.WithClock(func() time.Time { return fixedNow }),
		session.WithIDGenerator(func() (string, error) { return "sess-new", nil }),
	)
}

func TestSessionService_Create(t *testing.T) {
	ctx := context.Background()
	sessionsRepo := &mocks.SessionRepository{}

	sessionsRepo.On("Count", ctx, "user1").Return(3, nil)
	sessionsRepo.On("Create", ctx, mock.MatchedBy(func(s *session.BattleSession) bool {
		return s.ID == "sess-new" && s.UserID == "user1" && s.Title == "Ranked" && s.UpdatedAt.Equal(fixedNow)
	}), session.MaxSessionsPerUser).Return(nil)

	svc := newService(sessionsRepo, nil)
	sess, err := svc.Create(ctx, session.CreateRequest{UserID: "user1", Title: "Ranked"})
	require.NoError(t, err)
	require.Equal(t, "sess-new", sess.ID)
	sessionsRepo.AssertExpectations(t)
}

func TestSessionService_Create_RequiresOwner(t *testing.T) {
	sessionsRepo := &mocks.SessionRepository{}
	svc := newService(sessionsRepo, nil)

	_, err := svc.Create(context.Background(), session.CreateRequest{Title: "Ranked"})
	require.True(t, apperr.IsCode(err, apperr.CodeUnauthorized))
	sessionsRepo.AssertNotCalled(t, "Count", mock.Anything, mock.Anything)
}

func TestSessionService_Create_LimitExceeded(t *testing.T) {
	ctx := context.Background()
	sessionsRepo := &mocks.SessionRepository{}
	sessionsRepo.On("Count", ctx, "user1").Return(session.MaxSessionsPerUser, nil)

	svc := newService(sessionsRepo, nil)
	_, err := svc.Create(ctx, session.CreateRequest{UserID: "user1", Title: "21st"})
	require.True(t, apperr.IsCode(err, apperr.CodeSessionLimitExceeded))
	require.Equal(t, "You have reached the maximum limit of 20 battle sessions", err.Error())
	sessionsRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestSessionService_Create_LimitReachedAtWrite(t *testing.T) {
	ctx := context.Background()
	sessionsRepo := &mocks.SessionRepository{}
	sessionsRepo.On("Count", ctx, "user1").Return(session.MaxSessionsPerUser-1, nil)
	sessionsRepo.On("Create", ctx, mock.Anything, session.MaxSessionsPerUser).Return(repository.ErrLimitReached)

	_, err := newService(sessionsRepo, nil).Create(ctx, session.CreateRequest{UserID: "user1", Title: "late"})
	require.True(t, apperr.IsCode(err, apperr.CodeSessionLimitExceeded))
	require.False(t, apperr.IsCode(err, apperr.CodeSessionCreateFailed))
}

func TestSessionService_Create_TitleLength(t *testing.T) {
	ctx := context.Background()
	sessionsRepo := &mocks.SessionRepository{}
	sessionsRepo.On("Count", ctx, "user1").Return(0, nil)
	sessionsRepo.On("Create", ctx, mock.Anything, session.MaxSessionsPerUser).Return(nil)

	svc := newService(sessionsRepo, nil)

	_, err := svc.Create(ctx, session.CreateRequest{UserID: "user1", Title: strings.Repeat("a", 100)})
	require.NoError(t, err)

	_, err = svc.Create(ctx, session.CreateRequest{UserID: "user1", Title: strings.Repeat("a", 101)})
	require.True(t, apperr.IsCode(err, apperr.CodeSessionTitleTooLong))
	sessionsRepo.AssertNumberOfCalls(t, "Create", 1)
}

func TestSessionService_Create_WrapsRepositoryFailure(t *testing.T) {
	ctx := context.Background()
	cause := errors.New("db down")
	sessionsRepo := &mocks.SessionRepository{}
	sessionsRepo.On("Count", ctx, "user1").Return(0, nil)
	sessionsRepo.On("Create", ctx, mock.Anything, session.MaxSessionsPerUser).Return(cause)

	svc := newService(sessionsRepo, nil)
	_, err := svc.Create(ctx, session.CreateRequest{UserID: "user1", Title: "Ranked"})
	require.True(t, apperr.IsCode(err, apperr.CodeSessionCreateFailed))
	require.ErrorIs(t, err, cause)
}

func TestSessionService_Get_OtherOwner(t *testing.T) {
	ctx := context.Background()
	sessionsRepo := &mocks.SessionRepository{}
	sessionsRepo.On("Get", ctx, "s1").Return(&session.BattleSession{ID: "s1", UserID: "owner"}, nil)
	sessionsRepo.On("Get", ctx, "missing").Return(nil, repository.ErrNotFound)

	svc := newService(sessionsRepo, nil)

	_, err := svc.Get(ctx, "intruder", "s1")
	require.ErrorIs(t, err, session.ErrSessionNotFound)

	_, err = svc.Get(ctx, "owner", "missing")
	require.ErrorIs(t, err, session.ErrSessionNotFound)

	_, err = svc.Get(ctx, "", "s1")
	require.ErrorIs(t, err, session.ErrUnauthorized)
}

func TestSessionService_Update(t *testing.T) {
	ctx := context.Background()
	sessionsRepo := &mocks.SessionRepository{}
	title := "Renamed"

	sessionsRepo.On("Get", ctx, "s1").Return(&session.BattleSession{ID: "s1", UserID: "user1", Title: "Old"}, nil)
	sessionsRepo.On("Update", ctx, "s1", session.Patch{Title: &title}, fixedNow).Return(nil)

	svc := newService(sessionsRepo, nil)
	sess, err := svc.Update(ctx, "user1", "s1", session.Patch{Title: &title})
	require.NoError(t, err)
	require.Equal(t, "Renamed", sess.Title)
	require.True(t, sess.UpdatedAt.Equal(fixedNow))
}

func TestSessionService_Update_TitleTooLong(t *testing.T) {
	sessionsRepo := &mocks.SessionRepository{}
	title := strings.Repeat("x", 101)

	svc := newService(sessionsRepo, nil)
	_, err := svc.Update(context.Background(), "user1", "s1", session.Patch{Title: &title})
	require.True(t, apperr.IsCode(err, apperr.CodeSessionTitleTooLong))
	sessionsRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSessionService_Update_WrapsFailure(t *testing.T) {
	ctx := context.Background()
	cause := errors.New("write failed")
	sessionsRepo := &mocks.SessionRepository{}
	sessionsRepo.On("Get", ctx, "s1").Return(&session.BattleSession{ID: "s1", UserID: "user1"}, nil)
	sessionsRepo.On("Update", ctx, "s1", mock.Anything, mock.Anything).Return(cause)

	svc := newService(sessionsRepo, nil)
	_, err := svc.Update(ctx, "user1", "s1", session.Patch{})
	require.True(t, apperr.IsCode(err, apperr.CodeSessionUpdateFailed))
	require.ErrorIs(t, err, cause)
}

func TestSessionService_Delete(t *testing.T) {
	ctx := context.Background()
	sessionsRepo := &mocks.SessionRepository{}
	sessionsRepo.On("Get", ctx, "s1").Return(&session.BattleSession{ID: "s1", UserID: "user1"}, nil)
	sessionsRepo.On("DeleteWithMemos", ctx, "s1").Return(nil)

	svc := newService(sessionsRepo, nil)
	require.NoError(t, svc.Delete(ctx, "user1", "s1"))
	sessionsRepo.AssertExpectations(t)
}

func TestSessionService_Delete_WrapsFailure(t *testing.T) {
	ctx := context.Background()
	sessionsRepo := &mocks.SessionRepository{}
	sessionsRepo.On("Get", ctx, "s1").Return(&session.BattleSession{ID: "s1", UserID: "user1"}, nil)
	sessionsRepo.On("DeleteWithMemos", ctx, "s1").Return(errors.New("tx aborted"))

	svc := newService(sessionsRepo, nil)
	err := svc.Delete(ctx, "user1", "s1")
	require.True(t, apperr.IsCode(err, apperr.CodeSessionDeleteFailed))
}

func TestSessionService_DeleteAll_BestEffort(t *testing.T) {
	ctx := context.Background()
	sessionsRepo := &mocks.SessionRepository{}
	sessionsRepo.On("List", ctx, "user1").Return([]session.BattleSession{
		{ID: "s1"}, {ID: "s2"}, {ID: "s3"},
	}, nil)
	sessionsRepo.On("DeleteWithMemos", ctx, "s1").Return(nil)
	sessionsRepo.On("DeleteWithMemos", ctx, "s2").Return(errors.New("boom"))
	sessionsRepo.On("DeleteWithMemos", ctx, "s3").Return(repository.ErrNotFound)

	svc := newService(sessionsRepo, nil)
	err := svc.DeleteAll(ctx, "user1")
	require.True(t, apperr.IsCode(err, apperr.CodeSessionDeleteFailed))
	sessionsRepo.AssertNumberOfCalls(t, "DeleteWithMemos", 3)
}

func TestSessionService_StatsAndExport(t *testing.T) {
	ctx := context.Background()
	sessionsRepo := &mocks.SessionRepository{}
	memosRepo := &mocks.MemoRepository{}

	sessionsRepo.On("Get", ctx, "s1").Return(&session.BattleSession{ID: "s1", UserID: "user1", Title: "Ladder"}, nil)
	memosRepo.On("List", ctx, "s1").Return([]memo.Memo{
		{ID: "m3", Result: memo.ResultWin, Rating: 5, Memo: "a"},
		{ID: "m2", Result: memo.ResultWin, Rating: 4, Memo: "b"},
		{ID: "m1", Result: memo.ResultLose, Rating: 3, Memo: "c"},
	}, nil)

	svc := newService(sessionsRepo, memosRepo)

	st, err := svc.Stats(ctx, "user1", "s1")
	require.NoError(t, err)
	require.Equal(t, 3, st.TotalGames)
	require.Equal(t, "66.7", st.WinRate)
	require.Equal(t, "4.0", st.AverageRating)

	md, err := svc.Export(ctx, "user1", "s1", false)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(md, "# Ladder\n\n# Battle Statistics"))
	require.Equal(t, 3, strings.Count(md, "### Game"))
	require.Less(t, strings.Index(md, "### Game 3"), strings.Index(md, "### Game 1"))
}
