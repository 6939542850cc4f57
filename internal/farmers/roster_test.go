package farmers

import (
	"context"
	"testing"

	"cropadvisor/adapters/excel"
	"cropadvisor/adapters/sqlstore"
	"cropadvisor/domain/core"
	"cropadvisor/domain/farmer"
	"cropadvisor/internal/migration"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newSQLiteService(t *testing.T) *Service {
	t.Helper()
	db, err := sqlstore.Open(":memory:", 0, 0)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, migration.NewRunner().Run(context.Background(), db))

	return NewService(sqlstore.NewFarmerRepository(db), bcrypt.MinCost, nil)
}

func TestRoster_ImportThenSignupAndSignin(t *testing.T) {
	ctx := context.Background()
	svc := newSQLiteService(t)

	summary, err := svc.Import(ctx, &excel.Table{
		Rows: []excel.Row{{Line: 2, Values: map[string]string{
			"Name": "Meena", "Phone": "98220 11223", "Village": "Satara",
		}}},
	})
	require.NoError(t, err)
	require.Equal(t, 1, summary.Imported)

	_, err = svc.Signin(ctx, farmer.Credentials{Contact: "9822011223", Password: "secret123"})
	assert.ErrorIs(t, err, core.ErrInvalidCredentials)

	claimed, err := svc.Signup(ctx, farmer.Registration{
		Name: "Meena Patil", Contact: "9822011223", Password: "secret123",
	})
	require.NoError(t, err)
	assert.Equal(t, "Satara", claimed.Location)

	signedIn, err := svc.Signin(ctx, farmer.Credentials{Contact: "9822011223", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, claimed.ID, signedIn.ID)
	assert.Equal(t, "Meena Patil", signedIn.Name)

	list, err := svc.List(ctx, 10, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	// a claimed contact is taken
	_, err = svc.Signup(ctx, farmer.Registration{Name: "Other", Contact: "9822011223", Password: "another1"})
	assert.ErrorIs(t, err, core.ErrDuplicateContact)
}
