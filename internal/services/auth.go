package services

import (
	"strings"
	"time"

	"github.com/mroshb/cockpit/internal/models"
	"github.com/mroshb/cockpit/internal/security"
	"github.com/mroshb/cockpit/pkg/clock"
	"github.com/mroshb/cockpit/pkg/errors"
	"github.com/mroshb/cockpit/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	staleReason  = "STALE"
	frozenReason = "FROZEN"
)

// LoginResult is handed to the terminal after a successful login.
type LoginResult struct {
	User      models.User
	SessionID uint
	Token     string
}

// NewUser carries the fields for CreateUser.
type NewUser struct {
	Username  string
	Password  string
	FullName  string
	RoleNames []string
}

// AuthService authenticates operators and keeps at most one active
// session per user across all terminals.
type AuthService struct {
	db           *gorm.DB
	audit        *AuditService
	access       *AccessService
	now          clock.Clock
	staleAfter   time.Duration
	secret       string
	passwordCost int
}

func NewAuthService(db *gorm.DB, audit *AuditService, access *AccessService, opts Options) *AuthService {
	return &AuthService{
		db:           db,
		audit:        audit,
		access:       access,
		now:          opts.Clock,
		staleAfter:   opts.StaleAfter,
		secret:       opts.SessionSecret,
		passwordCost: opts.PasswordCost,
	}
}

// NeedsBootstrap reports whether the store has no users yet.
func (s *AuthService) NeedsBootstrap() (bool, error) {
	var count int64
	if err := s.db.Model(&models.User{}).Count(&count).Error; err != nil {
		return false, errors.Internal(err, "failed to count users")
	}
	return count == 0, nil
}

func (s *AuthService) CreateUser(actor Actor, in NewUser) (uint, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" || len(username) > 64 || security.SanitizeText(username) != username {
		return 0, errors.Validation("username is invalid")
	}
	if !security.ValidatePassword(in.Password) {
		return 0, errors.Validation("password must be at least 8 characters")
	}

	var exists int64
	if err := s.db.Model(&models.User{}).Where("username = ?", username).Count(&exists).Error; err != nil {
		return 0, errors.Internal(err, "failed to check username")
	}
	if exists > 0 {
		return 0, errors.New(errors.ErrCodeAlreadyExists, "username already exists")
	}

	roleIDs, err := s.access.roleIDsByName(in.RoleNames)
	if err != nil {
		return 0, err
	}

	hash, err := security.HashPassword(in.Password, s.passwordCost)
	if err != nil {
		return 0, errors.Internal(err, "failed to hash password")
	}

	now := s.now()
	user := &models.User{
		Username:     username,
		PasswordHash: hash,
		FullName:     security.SanitizeText(in.FullName),
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.db.Create(user).Error; err != nil {
		return 0, storeError(err, "failed to create user")
	}

	if len(roleIDs) > 0 {
		rows := make([]models.UserRole, 0, len(roleIDs))
		for _, id := range uniqueIDs(roleIDs) {
			rows = append(rows, models.UserRole{UserID: user.ID, RoleID: id})
		}
		if err := s.db.Omit(clause.Associations).Create(&rows).Error; err != nil {
			return 0, errors.Internal(err, "failed to assign roles")
		}
	}

	err = s.audit.Record(actor, ActionUserCreate, EntityUser, idString(user.ID), nil,
		State{"username": user.Username, "full_name": user.FullName, "roles": in.RoleNames}, nil)
	return user.ID, err
}

// SetUserFrozen freezes or unfreezes an account. Freezing also ends the
// user's active session.
func (s *AuthService) SetUserFrozen(actor Actor, userID uint, frozen bool, reason string) error {
	user, err := s.loadUser(userID)
	if err != nil {
		return err
	}
	if user.IsFrozen == frozen {
		return nil
	}

	if err := s.updateUser(userID, map[string]interface{}{"is_frozen": frozen}); err != nil {
		return err
	}

	action := ActionUserUnfreeze
	if frozen {
		action = ActionUserFreeze
		if err := s.closeActiveSession(actor, userID, frozenReason); err != nil {
			return err
		}
	}
	return s.audit.Record(actor, action, EntityUser, idString(userID),
		State{"is_frozen": user.IsFrozen}, State{"is_frozen": frozen},
		State{"reason": security.SanitizeText(reason)})
}

func (s *AuthService) SetUserActive(actor Actor, userID uint, active bool, reason string) error {
	user, err := s.loadUser(userID)
	if err != nil {
		return err
	}
	if user.IsActive == active {
		return nil
	}

	if err := s.updateUser(userID, map[string]interface{}{"is_active": active}); err != nil {
		return err
	}

	action := ActionUserActivate
	if !active {
		action = ActionUserDeactivate
	}
	return s.audit.Record(actor, action, EntityUser, idString(userID),
		State{"is_active": user.IsActive}, State{"is_active": active},
		State{"reason": security.SanitizeText(reason)})
}

func (s *AuthService) ChangePassword(actor Actor, userID uint, newPassword string) error {
	if _, err := s.loadUser(userID); err != nil {
		return err
	}
	if !security.ValidatePassword(newPassword) {
		return errors.Validation("password must be at least 8 characters")
	}
	hash, err := security.HashPassword(newPassword, s.passwordCost)
	if err != nil {
		return errors.Internal(err, "failed to hash password")
	}
	if err := s.updateUser(userID, map[string]interface{}{"password_hash": hash}); err != nil {
		return err
	}
	return s.audit.Record(actor, ActionUserPasswordChange, EntityUser, idString(userID), nil, nil, nil)
}

// Login opens a session for username on deviceID. Stale sessions are
// reaped first; a remaining active session on any terminal is an error.
func (s *AuthService) Login(username, password, deviceID string) (*LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, errors.Auth("invalid username or password")
	}
	if strings.TrimSpace(deviceID) == "" {
		return nil, errors.Validation("device id is required")
	}

	var user models.User
	if err := s.db.Where("username = ?", username).First(&user).Error; err != nil {
		if isRecordNotFound(err) {
			return nil, errors.Auth("invalid username or password")
		}
		return nil, errors.Internal(err, "failed to load user")
	}
	if !user.IsActive {
		return nil, errors.Auth("account is inactive")
	}
	if user.IsFrozen {
		return nil, errors.Auth("account is frozen")
	}
	if !security.VerifyPassword(password, user.PasswordHash) {
		return nil, errors.Auth("invalid username or password")
	}

	if _, err := s.ReapStale(SystemActor(deviceID)); err != nil {
		return nil, err
	}

	active, err := s.ActiveSession(user.ID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, errors.Auth("user already has an active session on " + active.DeviceID)
	}

	now := s.now()
	session := &models.Session{
		UserID:     user.ID,
		DeviceID:   deviceID,
		LoggedInAt: now,
		LastSeenAt: &now,
	}
	if err := s.db.Omit(clause.Associations).Create(session).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, errors.Auth("user already has an active session")
		}
		return nil, errors.Internal(err, "failed to create session")
	}

	token, err := security.GenerateSessionToken(session.ID, user.ID, deviceID, now, s.secret)
	if err != nil {
		return nil, errors.Internal(err, "failed to sign session token")
	}

	err = s.audit.Record(UserActor(user.ID, deviceID), ActionLogin, EntitySession, idString(session.ID), nil,
		State{"user_id": user.ID, "device_id": deviceID, "logged_in_at": now}, nil)
	if err != nil {
		return nil, err
	}
	return &LoginResult{User: user, SessionID: session.ID, Token: token}, nil
}

// VerifyToken checks a session token's signature and that the session it
// names is still active for the same user.
func (s *AuthService) VerifyToken(token string) (*models.Session, error) {
	claims, err := security.ValidateSessionToken(token, s.secret)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeAuth, "invalid session token")
	}
	var session models.Session
	if err := s.db.First(&session, claims.SessionID).Error; err != nil {
		if isRecordNotFound(err) {
			return nil, errors.Auth("session not found")
		}
		return nil, errors.Internal(err, "failed to load session")
	}
	if session.UserID != claims.UserID || !session.Active() {
		return nil, errors.Auth("session is no longer active")
	}
	return &session, nil
}

// Heartbeat marks the user's session as alive. Closed or unknown
// sessions are left alone.
func (s *AuthService) Heartbeat(sessionID, userID uint) error {
	err := s.db.Model(&models.Session{}).
		Where("id = ? AND user_id = ? AND logged_out_at IS NULL", sessionID, userID).
		Update("last_seen_at", s.now()).Error
	if err != nil {
		return errors.Internal(err, "failed to record heartbeat")
	}
	return nil
}

// HeartbeatToken marks the session named by a valid token as alive. A
// token for a session that has since closed is a no-op.
func (s *AuthService) HeartbeatToken(token string) error {
	claims, err := security.ValidateSessionToken(token, s.secret)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeAuth, "invalid session token")
	}
	return s.Heartbeat(claims.SessionID, claims.UserID)
}

// ReapStale closes every active session whose last activity (or login,
// when it never sent a heartbeat) is older than the stale window.
func (s *AuthService) ReapStale(actor Actor) (int, error) {
	var sessions []models.Session
	if err := s.db.Where("logged_out_at IS NULL").Find(&sessions).Error; err != nil {
		return 0, errors.Internal(err, "failed to load active sessions")
	}

	now := s.now()
	cutoff := now.Add(-s.staleAfter)
	closed := 0
	for _, session := range sessions {
		seen := session.LoggedInAt
		if session.LastSeenAt != nil {
			seen = *session.LastSeenAt
		}
		if !seen.Before(cutoff) {
			continue
		}
		ok, err := s.close(session.ID, now)
		if err != nil {
			return closed, err
		}
		if !ok {
			continue
		}
		err = s.audit.Record(actor, ActionSessionAutoLogout, EntitySession, idString(session.ID),
			State{"logged_out_at": nil}, State{"logged_out_at": now},
			State{"reason": staleReason, "user_id": session.UserID, "device_id": session.DeviceID, "last_seen_at": seen})
		if err != nil {
			return closed, err
		}
		closed++
	}

	if closed > 0 {
		logger.Info("Reaped stale sessions", "count", closed)
	}
	return closed, nil
}

// Logout closes the session. Already closed or unknown sessions are a
// no-op.
func (s *AuthService) Logout(actor Actor, sessionID uint) error {
	now := s.now()
	ok, err := s.close(sessionID, now)
	if err != nil || !ok {
		return err
	}
	return s.audit.Record(actor, ActionLogout, EntitySession, idString(sessionID),
		State{"logged_out_at": nil}, State{"logged_out_at": now}, nil)
}

// ActiveSession returns the user's open session, or nil.
func (s *AuthService) ActiveSession(userID uint) (*models.Session, error) {
	var session models.Session
	err := s.db.Where("user_id = ? AND logged_out_at IS NULL", userID).Take(&session).Error
	if isRecordNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Internal(err, "failed to load active session")
	}
	return &session, nil
}

func (s *AuthService) closeActiveSession(actor Actor, userID uint, reason string) error {
	session, err := s.ActiveSession(userID)
	if err != nil || session == nil {
		return err
	}
	now := s.now()
	if _, err := s.close(session.ID, now); err != nil {
		return err
	}
	return s.audit.Record(actor, ActionSessionAutoLogout, EntitySession, idString(session.ID),
		State{"logged_out_at": nil}, State{"logged_out_at": now},
		State{"reason": reason, "user_id": userID, "device_id": session.DeviceID})
}

// close ends one session and reports whether it was still open.
func (s *AuthService) close(sessionID uint, at time.Time) (bool, error) {
	res := s.db.Model(&models.Session{}).
		Where("id = ? AND logged_out_at IS NULL", sessionID).
		Update("logged_out_at", at)
	if res.Error != nil {
		return false, errors.Internal(res.Error, "failed to close session")
	}
	return res.RowsAffected == 1, nil
}

func (s *AuthService) loadUser(userID uint) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		if isRecordNotFound(err) {
			return nil, errors.NotFound("user not found")
		}
		return nil, errors.Internal(err, "failed to load user")
	}
	return &user, nil
}

func (s *AuthService) updateUser(userID uint, fields map[string]interface{}) error {
	fields["updated_at"] = s.now()
	if err := s.db.Model(&models.User{}).Where("id = ?", userID).Updates(fields).Error; err != nil {
		return errors.Internal(err, "failed to update user")
	}
	return nil
}
