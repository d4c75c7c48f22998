package numbering

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) LastNumber(ctx context.Context, kind Kind, year int) (string, error) {
	args := m.Called(ctx, kind, year)
	return args.String(0), args.Error(1)
}

// memStore issues numbers the way the sqlite store does: last one written wins.
type memStore struct {
	issued map[Kind][]string
}

func (s *memStore) LastNumber(_ context.Context, kind Kind, year int) (string, error) {
	prefix := YearPrefix(kind, year)
	list := s.issued[kind]
	for i := len(list) - 1; i >= 0; i-- {
		if len(list[i]) > len(prefix) && list[i][:len(prefix)] == prefix {
			return list[i], nil
		}
	}
	return "", nil
}

func TestGeneratorNext(t *testing.T) {
	t.Parallel()

	type deps struct {
		store *MockStore
	}

	tests := []struct {
		name   string
		kind   Kind
		year   int
		setup  func(d deps)
		assert func(t *testing.T, got string, err error)
	}{
		{
			name: "first number of the year",
			kind: ServiceRequest,
			year: 2025,
			setup: func(d deps) {
				d.store.On("LastNumber", mock.Anything, ServiceRequest, 2025).Return("", nil).Once()
			},
			assert: func(t *testing.T, got string, err error) {
				require.NoError(t, err)
				assert.Equal(t, "SR-2025-00001", got)
			},
		},
		{
			name: "increments last issued",
			kind: Quotation,
			year: 2025,
			setup: func(d deps) {
				d.store.On("LastNumber", mock.Anything, Quotation, 2025).Return("QT-2025-00041", nil).Once()
			},
			assert: func(t *testing.T, got string, err error) {
				require.NoError(t, err)
				assert.Equal(t, "QT-2025-00042", got)
			},
		},
		{
			name: "widens past five digits",
			kind: ServiceRequest,
			year: 2026,
			setup: func(d deps) {
				d.store.On("LastNumber", mock.Anything, ServiceRequest, 2026).Return("SR-2026-99999", nil).Once()
			},
			assert: func(t *testing.T, got string, err error) {
				require.NoError(t, err)
				assert.Equal(t, "SR-2026-100000", got)
			},
		},
		{
			name: "continues after widening",
			kind: ServiceRequest,
			year: 2026,
			setup: func(d deps) {
				d.store.On("LastNumber", mock.Anything, ServiceRequest, 2026).Return("SR-2026-100000", nil).Once()
			},
			assert: func(t *testing.T, got string, err error) {
				require.NoError(t, err)
				assert.Equal(t, "SR-2026-100001", got)
			},
		},
		{
			name: "store error",
			kind: ServiceRequest,
			year: 2025,
			setup: func(d deps) {
				d.store.On("LastNumber", mock.Anything, ServiceRequest, 2025).Return("", errors.New("db locked")).Once()
			},
			assert: func(t *testing.T, got string, err error) {
				require.Error(t, err)
				assert.ErrorContains(t, err, "db locked")
				assert.Empty(t, got)
			},
		},
		{
			name: "malformed last number",
			kind: ServiceRequest,
			year: 2025,
			setup: func(d deps) {
				d.store.On("LastNumber", mock.Anything, ServiceRequest, 2025).Return("SR-2025-", nil).Once()
			},
			assert: func(t *testing.T, got string, err error) {
				require.Error(t, err)
				assert.ErrorContains(t, err, "malformed")
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			d := deps{store: &MockStore{}}
			tt.setup(d)

			got, err := NewGenerator(d.store).Next(context.Background(), tt.kind, tt.year)
			tt.assert(t, got, err)
			d.store.AssertExpectations(t)
		})
	}
}

func TestGeneratorSequencesAreIndependent(t *testing.T) {
	t.Parallel()

	store := &memStore{issued: map[Kind][]string{}}
	gen := NewGenerator(store)
	ctx := context.Background()

	issue := func(kind Kind, year int) string {
		n, err := gen.Next(ctx, kind, year)
		require.NoError(t, err)
		store.issued[kind] = append(store.issued[kind], n)
		return n
	}

	assert.Equal(t, "SR-2025-00001", issue(ServiceRequest, 2025))
	assert.Equal(t, "SR-2025-00002", issue(ServiceRequest, 2025))
	assert.Equal(t, "QT-2025-00001", issue(Quotation, 2025))
	assert.Equal(t, "SR-2026-00001", issue(ServiceRequest, 2026))
	assert.Equal(t, "SR-2025-00003", issue(ServiceRequest, 2025))
}

func TestSequence(t *testing.T) {
	t.Parallel()

	n, err := Sequence("QT-2024-00317")
	require.NoError(t, err)
	assert.Equal(t, 317, n)

	_, err = Sequence("garbage")
	require.Error(t, err)
}
