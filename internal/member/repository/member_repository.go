package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"realtime_chat_service/internal/member/domain"
	errprocess "realtime_chat_service/pkg/err"
)

// pgUniqueViolation postgres unique_violation
const pgUniqueViolation = "23505"

// CreateMemberTable 初始化 member table
const CreateMemberTable = `
CREATE TABLE IF NOT EXISTS member (
	id         BIGSERIAL PRIMARY KEY,
	member_id  VARCHAR(36)  NOT NULL UNIQUE,
	email      VARCHAR(255) NOT NULL UNIQUE,
	password   VARCHAR(255) NOT NULL,
	status     SMALLINT     NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ  NOT NULL DEFAULT NOW()
)`

// MemberRepository definition get Member info
type MemberRepository interface {
	Migrate(ctx context.Context) error
	CreateUser(ctx context.Context, user *domain.Member) error
	UpdateMemberStatus(ctx context.Context, user *domain.Member) error
	FindByMember(ctx context.Context, memberQuery *domain.MemberQuery) (*domain.Member, error)
	DeleteByMemberID(ctx context.Context, memberID string) error
}

type memberRepository struct {
	db *pgxpool.Pool
}

// NewMemberRepository create a MemberRepository
func NewMemberRepository(db *pgxpool.Pool) MemberRepository {
	return &memberRepository{db: db}
}

func (r *memberRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, CreateMemberTable); err != nil {
		return fmt.Errorf("create member table: %w", err)
	}
	return nil
}

func (r *memberRepository) CreateUser(ctx context.Context, member *domain.Member) error {
	_, err := r.db.Exec(ctx,
		"INSERT INTO member(member_id, email, password, status) VALUES ($1, $2, $3, $4)",
		member.MemberID, strings.ToLower(member.Email), member.Password, member.Status)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return errprocess.ErrEmailExists
	}
	return err
}

func (r *memberRepository) UpdateMemberStatus(ctx context.Context, member *domain.Member) error {
	_, err := r.db.Exec(ctx, "UPDATE member SET status = $1 WHERE member_id = $2", member.Status, member.MemberID)
	return err
}

func (r *memberRepository) DeleteByMemberID(ctx context.Context, memberID string) error {
	_, err := r.db.Exec(ctx, "DELETE FROM member WHERE member_id = $1", memberID)
	return err
}

func (r *memberRepository) FindByMember(ctx context.Context, memberQuery *domain.MemberQuery) (*domain.Member, error) {
	queryStr := "SELECT id, member_id, email, password, status FROM member WHERE 1=1"
	params := []interface{}{}
	paramCount := 1

	if memberQuery.Email != nil {
		queryStr += fmt.Sprintf(" AND email = $%d", paramCount)
		params = append(params, strings.ToLower(*memberQuery.Email))
		paramCount++
	}
	if memberQuery.MemberID != nil {
		queryStr += fmt.Sprintf(" AND member_id = $%d", paramCount)
		params = append(params, *memberQuery.MemberID)
		paramCount++
	}
	if memberQuery.ID != nil {
		queryStr += fmt.Sprintf(" AND id = $%d", paramCount)
		params = append(params, *memberQuery.ID)
	}

	row := r.db.QueryRow(ctx, queryStr, params...)
	var member domain.Member
	err := row.Scan(&member.ID, &member.MemberID, &member.Email, &member.Password, &member.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errprocess.ErrUserNotFound
		}
		return nil, err
	}

	return &member, nil
}
