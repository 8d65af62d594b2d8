package app

import (
	"context"
	"errors"
	"strings"
	"time"

	chatdomain "realtime_chat_service/internal/chat/domain"
	"realtime_chat_service/internal/member/domain"
	"realtime_chat_service/internal/member/repository"
	"realtime_chat_service/pkg/database"
	"realtime_chat_service/pkg/encrypt"
	errprocess "realtime_chat_service/pkg/err"
	"realtime_chat_service/pkg/logger"
	token "realtime_chat_service/pkg/token"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ProfileStore chat identity store, 註冊時同步建立 profile
type ProfileStore interface {
	CreateUser(ctx context.Context, user *chatdomain.User) error
	FindByID(ctx context.Context, userID string) (*chatdomain.User, error)
	UpdateProfile(ctx context.Context, userID string, username, avatar *string) (*chatdomain.User, error)
}

// AvatarStore 上傳頭像, 回傳可存取的 url
type AvatarStore interface {
	Upload(ctx context.Context, ownerID, roomID string, file *chatdomain.FileUpload) (string, error)
}

// LoginResult token 與 profile
type LoginResult struct {
	Token string           `json:"token"`
	User  *chatdomain.User `json:"user"`
}

// MemberUseCase 這裡封裝了對外提供的應用服務
type MemberUseCase interface {
	Register(ctx context.Context, req *domain.RegisterReq) (*chatdomain.User, error)
	FindMember(ctx context.Context, param *domain.MemberQuery) (*domain.Member, error)
	Login(ctx context.Context, email, password string, now time.Time) (*LoginResult, error)
	Logout(ctx context.Context, token string) error
	ForceLogout(ctx context.Context, memberID string) error
	CheckSessionTimeout(ctx context.Context, token string) (bool, error)
	ReconnectSession(ctx context.Context, token string) error
	ValidateSession(ctx context.Context, token string) (string, error)

	Profile(ctx context.Context, memberID string) (*chatdomain.User, error)
	UpdateProfile(ctx context.Context, memberID string, username *string) (*chatdomain.User, error)
	UpdateAvatar(ctx context.Context, memberID string, file *chatdomain.FileUpload) (*chatdomain.User, error)
}

type memberUseCase struct {
	memberRepo   repository.MemberRepository
	sessionTTL   time.Duration
	redisRepo    database.RedisRepository[domain.MemberSession]
	hashPassword func(string) (string, error)
	profiles     ProfileStore
	avatars      AvatarStore
}

// NewMemberUseCase 建立一個新的 MemberUseCase
func NewMemberUseCase(memberRepo repository.MemberRepository,
	sessionTTL time.Duration,
	redisRepo database.RedisRepository[domain.MemberSession],
	hashPassword func(string) (string, error),
	profiles ProfileStore,
	avatars AvatarStore,
) MemberUseCase {
	return &memberUseCase{
		memberRepo:   memberRepo,
		sessionTTL:   sessionTTL,
		redisRepo:    redisRepo,
		hashPassword: hashPassword,
		profiles:     profiles,
		avatars:      avatars,
	}
}

// Register 建立帳號與 chat profile, profile 失敗時回滾帳號
func (m *memberUseCase) Register(ctx context.Context, req *domain.RegisterReq) (*chatdomain.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	username := strings.TrimSpace(req.Username)
	if email == "" || username == "" || req.Password == "" {
		return nil, errprocess.ErrInvalidParams
	}

	// 檢查 email 是否已存在
	_, err := m.memberRepo.FindByMember(ctx, &domain.MemberQuery{Email: &email})
	if err == nil {
		return nil, errprocess.ErrEmailExists
	}
	if !errors.Is(err, errprocess.ErrUserNotFound) {
		return nil, err
	}

	pw, err := m.hashPassword(req.Password)
	if err != nil {
		if errors.Is(err, encrypt.ErrWeakPassword) {
			return nil, errprocess.ErrWeakPassword.Wrap(err)
		}
		logger.Log.Errorf("hash password err", err)
		return nil, err
	}

	member := domain.Member{
		MemberID: uuid.New().String(),
		Email:    email,
		Password: pw,
		Status:   domain.MemberStatusOffLine,
	}
	if err := m.memberRepo.CreateUser(ctx, &member); err != nil {
		return nil, err
	}

	user := &chatdomain.User{
		ID:        member.MemberID,
		Username:  username,
		Email:     email,
		Status:    chatdomain.StatusOffline,
		Friends:   []string{},
		CreatedAt: time.Now().UTC(),
	}
	if err := m.profiles.CreateUser(ctx, user); err != nil {
		if delErr := m.memberRepo.DeleteByMemberID(ctx, member.MemberID); delErr != nil {
			logger.Log.Error("rollback member failed", zap.String("memberID", member.MemberID), zap.Error(delErr))
		}
		return nil, err
	}

	logger.Log.Info("member registered", zap.String("memberID", member.MemberID))
	return user, nil
}

// FindMember 查詢帳號
func (m *memberUseCase) FindMember(ctx context.Context, param *domain.MemberQuery) (*domain.Member, error) {
	return m.memberRepo.FindByMember(ctx, param)
}

// Login 驗證密碼, session 存 redis 並以 member id 為 key, 重複登入會覆蓋舊 session
func (m *memberUseCase) Login(ctx context.Context, email, password string, now time.Time) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	member, err := m.memberRepo.FindByMember(ctx, &domain.MemberQuery{Email: &email})
	if err != nil {
		if errors.Is(err, errprocess.ErrUserNotFound) {
			return nil, errprocess.ErrInvalidCredential
		}
		return nil, err
	}

	if err = member.IsPasswordMatch(password); err != nil {
		logger.Log.Info("password mismatch", zap.String("memberID", member.MemberID))
		return nil, errprocess.ErrInvalidCredential
	}

	tok, err := token.GenerateJWTWrapper(member.MemberID, string(token.RoleMember))
	if err != nil {
		return nil, errprocess.Internal("generate token", err)
	}

	session := domain.MemberSession{
		Token:        tok,
		MemberID:     member.MemberID,
		CreatedAt:    now,
		LastActivity: now,
		ExpiredAt:    now.Add(m.sessionTTL),
	}
	if err := m.redisRepo.Set(ctx, member.MemberID, session, m.sessionTTL); err != nil {
		return nil, errprocess.Internal("save session", err)
	}

	member.Status = domain.MemberStatusOnLine
	if err := m.memberRepo.UpdateMemberStatus(ctx, member); err != nil {
		return nil, err
	}

	user, err := m.profiles.FindByID(ctx, member.MemberID)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: tok, User: user}, nil
}

// Logout 刪除 session
func (m *memberUseCase) Logout(ctx context.Context, t string) error {
	tokenInfo, err := token.ParseJWTWrapper(t)
	if err != nil {
		logger.Log.Info("logout parse token failed", zap.Error(err))
		return errprocess.ErrInvalidToken.Wrap(err)
	}
	return m.ForceLogout(ctx, tokenInfo.MemberID)
}

// ForceLogout 清除該 member 的 session
func (m *memberUseCase) ForceLogout(ctx context.Context, memberID string) error {
	if err := m.redisRepo.Del(ctx, memberID); err != nil {
		return errprocess.Internal("delete session", err)
	}

	return m.memberRepo.UpdateMemberStatus(ctx, &domain.Member{
		MemberID: memberID,
		Status:   domain.MemberStatusOffLine,
	})
}

// CheckSessionTimeout true 代表 session 已不存在或過期
func (m *memberUseCase) CheckSessionTimeout(ctx context.Context, t string) (bool, error) {
	tokenInfo, err := token.ParseJWTWrapper(t)
	if err != nil {
		return true, errprocess.ErrInvalidToken.Wrap(err)
	}

	ttl, err := m.redisRepo.GetTTL(ctx, tokenInfo.MemberID)
	if err != nil {
		return true, err
	}
	return ttl <= 0, nil
}

// ReconnectSession 斷線重連, 延長 session
func (m *memberUseCase) ReconnectSession(ctx context.Context, t string) error {
	tokenInfo, err := token.ParseJWTWrapper(t)
	if err != nil {
		return errprocess.ErrInvalidToken.Wrap(err)
	}
	logger.Log.Debug("ReconnectSession", zap.String("memberID", tokenInfo.MemberID))

	return m.redisRepo.ExtendTTL(ctx, tokenInfo.MemberID, m.sessionTTL)
}

// ValidateSession token 必須是該 member 目前的 session
func (m *memberUseCase) ValidateSession(ctx context.Context, t string) (string, error) {
	tokenInfo, err := token.ParseJWTWrapper(t)
	if err != nil {
		return "", errprocess.ErrInvalidToken.Wrap(err)
	}

	session, err := m.redisRepo.Get(ctx, tokenInfo.MemberID)
	if err != nil {
		if errors.Is(err, database.ErrRedisNil) {
			return "", errprocess.ErrInvalidToken
		}
		return "", err
	}
	if session.Token != t || session.IsExpired() {
		return "", errprocess.ErrInvalidToken
	}
	return tokenInfo.MemberID, nil
}

// Profile 目前使用者資料
func (m *memberUseCase) Profile(ctx context.Context, memberID string) (*chatdomain.User, error) {
	return m.profiles.FindByID(ctx, memberID)
}

// UpdateProfile 只允許修改 username
func (m *memberUseCase) UpdateProfile(ctx context.Context, memberID string, username *string) (*chatdomain.User, error) {
	if username == nil {
		return m.profiles.FindByID(ctx, memberID)
	}
	name := strings.TrimSpace(*username)
	if name == "" {
		return nil, errprocess.ErrInvalidParams
	}
	return m.profiles.UpdateProfile(ctx, memberID, &name, nil)
}

// UpdateAvatar 上傳後把 url 寫回 profile
func (m *memberUseCase) UpdateAvatar(ctx context.Context, memberID string, file *chatdomain.FileUpload) (*chatdomain.User, error) {
	if m.avatars == nil {
		return nil, errprocess.Internal("avatar store not configured", nil)
	}
	if file == nil {
		return nil, errprocess.ErrInvalidParams
	}
	url, err := m.avatars.Upload(ctx, memberID, "", file)
	if err != nil {
		return nil, err
	}
	return m.profiles.UpdateProfile(ctx, memberID, nil, &url)
}
