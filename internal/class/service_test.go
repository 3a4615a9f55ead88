package class

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"gymflow/internal/apperr"
	"gymflow/internal/cache"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, c Class) (*Class, error) {
	args := m.Called(ctx, c)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Class), args.Error(1)
}

func (m *MockRepository) Get(ctx context.Context, gymID, id int) (*Class, error) {
	args := m.Called(ctx, gymID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Class), args.Error(1)
}

func (m *MockRepository) List(ctx context.Context, gymID int, f ListFilter) ([]Class, error) {
	args := m.Called(ctx, gymID, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Class), args.Error(1)
}

func (m *MockRepository) Update(ctx context.Context, c Class) (*Class, error) {
	args := m.Called(ctx, c)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Class), args.Error(1)
}

func (m *MockRepository) HasSessions(ctx context.Context, gymID, id int) (bool, error) {
	args := m.Called(ctx, gymID, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) Delete(ctx context.Context, gymID, id int) error {
	return m.Called(ctx, gymID, id).Error(0)
}

func (m *MockRepository) Deactivate(ctx context.Context, gymID, id int) error {
	return m.Called(ctx, gymID, id).Error(0)
}

var noRows = fmt.Errorf("get class: %w", sql.ErrNoRows)

func spin() *Class {
	return &Class{ID: 4, GymID: 1, Name: "Spin", Duration: 45, MaxCapacity: 2, Category: CategorySpinning, DifficultyLevel: DifficultyAllLevels, IsActive: true}
}

func TestService_Create(t *testing.T) {
	tests := []struct {
		name    string
		req     CreateClassRequest
		wantErr bool
	}{
		{"valid", CreateClassRequest{Name: "Spin", Duration: 45, MaxCapacity: 20, Category: CategorySpinning}, false},
		{"zero capacity", CreateClassRequest{Name: "Spin", Duration: 45, MaxCapacity: 0}, true},
		{"missing name", CreateClassRequest{Duration: 45, MaxCapacity: 20}, true},
		{"unknown category", CreateClassRequest{Name: "Spin", Duration: 45, MaxCapacity: 20, Category: "chess"}, true},
		{"custom without reference", CreateClassRequest{Name: "Spin", Duration: 45, MaxCapacity: 20, Category: CategoryCustom}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			svc := NewService(repo, nil, time.Minute)
			if !tt.wantErr {
				repo.On("Create", mock.Anything, mock.MatchedBy(func(c Class) bool {
					return c.GymID == 1 && c.DifficultyLevel == DifficultyAllLevels
				})).Return(spin(), nil)
			}

			c, err := svc.Create(context.Background(), 1, tt.req)
			if tt.wantErr {
				assert.True(t, apperr.HasCode(err, apperr.CodeClassInvalid), "got %v", err)
				repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 4, c.ID)
		})
	}
}

func TestService_Get_ScopedToGym(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, nil, time.Minute)

	repo.On("Get", mock.Anything, 1, 4).Return(spin(), nil)
	repo.On("Get", mock.Anything, 2, 4).Return(nil, noRows)

	c, err := svc.Get(context.Background(), 1, 4)
	require.NoError(t, err)
	assert.Equal(t, "Spin", c.Name)

	_, err = svc.Get(context.Background(), 2, 4)
	assert.ErrorIs(t, err, ErrClassNotFound)
	assert.Equal(t, apperr.KindScope, apperr.KindOf(err))
}

func TestService_Get_CachedEntryFromOtherGym(t *testing.T) {
	rdb, rmock := redismock.NewClientMock()
	svc := NewService(new(MockRepository), cache.New(rdb, time.Hour), time.Minute)

	rmock.ExpectGet("classes:detail:4").SetVal(`{"id":4,"gym_id":1,"name":"Spin","is_active":true}`)

	_, err := svc.Get(context.Background(), 2, 4)
	assert.ErrorIs(t, err, ErrClassNotFound)
	assert.NoError(t, rmock.ExpectationsWereMet())
}

func TestService_RequireActive(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, nil, time.Minute)

	inactive := spin()
	inactive.ID = 5
	inactive.IsActive = false
	repo.On("Get", mock.Anything, 1, 4).Return(spin(), nil)
	repo.On("Get", mock.Anything, 1, 5).Return(inactive, nil)

	_, err := svc.RequireActive(context.Background(), 1, 4)
	assert.NoError(t, err)

	_, err = svc.RequireActive(context.Background(), 1, 5)
	assert.ErrorIs(t, err, ErrClassInactive)
}

func TestService_List_CachedAndTracked(t *testing.T) {
	rdb, rmock := redismock.NewClientMock()
	repo := new(MockRepository)
	svc := NewService(repo, cache.New(rdb, time.Hour), time.Minute)

	want := ListFilter{Search: "spin", Limit: defaultLimit}
	key := cache.ClassListKey(1, Category(""), "spin", false, defaultLimit, 0)
	repo.On("List", mock.Anything, 1, want).Return([]Class{*spin()}, nil).Once()

	rmock.ExpectGet(key).RedisNil()
	payload, err := json.Marshal([]Class{*spin()})
	require.NoError(t, err)
	rmock.ExpectSet(key, payload, time.Minute).SetVal("OK")
	rmock.ExpectSAdd("tracking:classes:1", key).SetVal(1)
	rmock.ExpectExpire("tracking:classes:1", time.Hour).SetVal(true)

	rows, err := svc.List(context.Background(), 1, ListFilter{Search: "spin"})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.NoError(t, rmock.ExpectationsWereMet())
	repo.AssertExpectations(t)
}

func TestService_List_ClampsLimit(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, nil, time.Minute)

	repo.On("List", mock.Anything, 1, ListFilter{Limit: maxLimit}).Return(nil, nil)

	rows, err := svc.List(context.Background(), 1, ListFilter{Limit: 5000, Offset: -3})
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestService_Update(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, nil, time.Minute)

	capacity := 30
	repo.On("Get", mock.Anything, 1, 4).Return(spin(), nil)
	repo.On("Update", mock.Anything, mock.MatchedBy(func(c Class) bool {
		return c.ID == 4 && c.MaxCapacity == 30 && c.Name == "Spin"
	})).Return(&Class{ID: 4, GymID: 1, Name: "Spin", MaxCapacity: 30}, nil)

	c, err := svc.Update(context.Background(), 1, 4, UpdateClassRequest{MaxCapacity: &capacity})
	require.NoError(t, err)
	assert.Equal(t, 30, c.MaxCapacity)

	zero := 0
	_, err = svc.Update(context.Background(), 1, 4, UpdateClassRequest{MaxCapacity: &zero})
	assert.True(t, apperr.HasCode(err, apperr.CodeClassInvalid))

	custom := CategoryCustom
	_, err = svc.Update(context.Background(), 1, 4, UpdateClassRequest{Category: &custom})
	assert.True(t, apperr.HasCode(err, apperr.CodeClassInvalid))
}

func TestService_Delete(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, nil, time.Minute)

	repo.On("Get", mock.Anything, 1, 4).Return(spin(), nil)
	repo.On("Get", mock.Anything, 1, 5).Return(&Class{ID: 5, GymID: 1}, nil)
	repo.On("Get", mock.Anything, 1, 6).Return(nil, noRows)
	repo.On("HasSessions", mock.Anything, 1, 4).Return(true, nil)
	repo.On("HasSessions", mock.Anything, 1, 5).Return(false, nil)
	repo.On("Deactivate", mock.Anything, 1, 4).Return(nil)
	repo.On("Delete", mock.Anything, 1, 5).Return(nil)

	res, err := svc.Delete(context.Background(), 1, 4)
	require.NoError(t, err)
	assert.True(t, res.Deactivated)
	assert.False(t, res.Deleted)

	res, err = svc.Delete(context.Background(), 1, 5)
	require.NoError(t, err)
	assert.True(t, res.Deleted)

	_, err = svc.Delete(context.Background(), 1, 6)
	assert.ErrorIs(t, err, ErrClassNotFound)

	repo.AssertNotCalled(t, "Delete", mock.Anything, 1, 4)
	repo.AssertExpectations(t)
}

func TestService_Delete_InvalidatesSessionViews(t *testing.T) {
	rdb, rmock := redismock.NewClientMock()
	repo := new(MockRepository)
	svc := NewService(repo, cache.New(rdb, time.Hour), time.Minute)

	repo.On("Get", mock.Anything, 1, 4).Return(spin(), nil)
	repo.On("HasSessions", mock.Anything, 1, 4).Return(true, nil)
	repo.On("Deactivate", mock.Anything, 1, 4).Return(nil)

	rmock.ExpectDel("classes:detail:4").SetVal(1)
	rmock.ExpectSMembers("tracking:classes:1").SetVal([]string{})
	rmock.ExpectSMembers("tracking:sessions:class:4").SetVal([]string{"sessions:list:1:abc"})
	rmock.ExpectDel("sessions:list:1:abc").SetVal(1)
	rmock.ExpectSRem("tracking:sessions:class:4", "sessions:list:1:abc").SetVal(1)

	_, err := svc.Delete(context.Background(), 1, 4)
	require.NoError(t, err)
	assert.NoError(t, rmock.ExpectationsWereMet())
}
