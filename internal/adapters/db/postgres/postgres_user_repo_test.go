package postgres

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/Miraines/AquaTrack/auth-service/internal/domain/auth/errors"
	"github.com/Miraines/AquaTrack/auth-service/internal/domain/auth/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(&model.User{}, &model.Session{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newUser(email string) model.User {
	u := model.User{Email: email, PasswordHash: "h"}
	u.ApplyDefaults()
	return u
}

func TestPostgresUserRepo_CRUD(t *testing.T) {
	repo := NewPostgresUserRepo(setupDB(t))
	ctx := context.Background()

	created, err := repo.CreateUser(ctx, newUser("e@e.com"))
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, created.ID)

	got, err := repo.GetUserByEmail(ctx, "e@e.com")
	require.NoError(t, err)
	require.Equal(t, created.ID, got.ID)
	require.Equal(t, model.DefaultAvatarURL, got.AvatarURL)

	got2, err := repo.GetUserByID(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "e@e.com", got2.Email)

	got2.Name = "Olena"
	got2.Weight = 61.5
	got2.Gender = model.GenderFemale
	updated, err := repo.UpdateUser(ctx, got2)
	require.NoError(t, err)
	require.Equal(t, "Olena", updated.Name)
	require.Equal(t, 61.5, updated.Weight)
	require.Equal(t, model.GenderFemale, updated.Gender)
	require.Equal(t, "h", updated.PasswordHash)
}

func TestPostgresUserRepo_NotFound(t *testing.T) {
	repo := NewPostgresUserRepo(setupDB(t))
	ctx := context.Background()

	_, err := repo.GetUserByEmail(ctx, "none@e.com")
	require.True(t, errors.IsNotFound(err))

	_, err = repo.GetUserByID(ctx, uuid.New())
	require.True(t, errors.IsNotFound(err))

	ghost := newUser("ghost@e.com")
	ghost.ID = uuid.New()
	_, err = repo.UpdateUser(ctx, ghost)
	require.True(t, errors.IsNotFound(err))
}

func TestPostgresUserRepo_DuplicateEmail(t *testing.T) {
	repo := NewPostgresUserRepo(setupDB(t))
	ctx := context.Background()

	_, err := repo.CreateUser(ctx, newUser("dup@e.com"))
	require.NoError(t, err)

	_, err = repo.CreateUser(ctx, newUser("dup@e.com"))
	require.True(t, errors.IsAlreadyExists(err))
	require.Equal(t, "User already exists", err.Error())

	var count int64
	require.NoError(t, repo.db.Model(&model.User{}).Where("email = ?", "dup@e.com").Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestPostgresUserRepo_UpdateEmailCollision(t *testing.T) {
	repo := NewPostgresUserRepo(setupDB(t))
	ctx := context.Background()

	_, err := repo.CreateUser(ctx, newUser("a@e.com"))
	require.NoError(t, err)
	b, err := repo.CreateUser(ctx, newUser("b@e.com"))
	require.NoError(t, err)

	b.Email = "a@e.com"
	_, err = repo.UpdateUser(ctx, b)
	require.True(t, errors.IsAlreadyExists(err))
}

func TestPostgresUserRepo_StoreFailureIsNotNotFound(t *testing.T) {
	db := setupDB(t)
	repo := NewPostgresUserRepo(db)
	require.NoError(t, db.Migrator().DropTable(&model.User{}))

	_, err := repo.GetUserByEmail(context.Background(), "x@e.com")
	require.Error(t, err)
	require.False(t, errors.IsNotFound(err))
	require.True(t, errors.IsInternal(err))
}
