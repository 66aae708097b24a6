package usecase

import (
	"context"
	"net/http"
	"strings"
	"time"

	"cp360/internal/authz"
	"cp360/internal/config"
	"cp360/internal/domain/model"
	"cp360/internal/repository"
	"cp360/internal/validation"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
)

// accesstokenの有効期限
const accessTokenTTL = 15 * time.Minute

// refreshtokenの有効期限
const refreshTokenTTL = 14 * 24 * time.Hour

// ログイン失敗の文言（順にチェックする）
const (
	msgInvalidCredentials = "Invalid email or password."
	msgAccountDisabled    = "Your account is disabled. Contact administrator."
	msgEmailNotVerified   = "Email is not verified."
)

type UserDTO struct {
	ID         int64     `json:"id"`
	Email      string    `json:"email"`
	Username   string    `json:"username"`
	Phone      string    `json:"phone"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	FullName   string    `json:"full_name"`
	Role       string    `json:"role"`
	IsActive   bool      `json:"is_active"`
	IsVerified bool      `json:"is_verified"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// access/refreshの組。ログイン成功時に毎回新しく発行する。
type TokenPairDTO struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

type RegisterInput struct {
	Email     string `json:"email"`
	Username  string `json:"username"`
	Phone     string `json:"phone"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
}

type RegisterResponse struct {
	Message string  `json:"message"`
	Data    UserDTO `json:"data"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Message string       `json:"message"`
	Data    UserDTO      `json:"data"`
	Tokens  TokenPairDTO `json:"tokens"`
}

type UpdateProfileInput struct {
	Email     string `json:"email"`
	Username  string `json:"username"`
	Phone     string `json:"phone"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type ChangePasswordInput struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

type AuthUsecase struct {
	cfg   config.Config
	users repository.UserRepository
}

func NewAuthUsecase(cfg config.Config, users repository.UserRepository) *AuthUsecase {
	return &AuthUsecase{
		cfg:   cfg,
		users: users,
	}
}

// 会員登録。
// 匿名のリクエストはrole指定に関係なくend_userに落とす。
// role=adminはadmin相当の呼び出し元だけが指定できる（それ以外は403）。
func (u *AuthUsecase) Register(ctx context.Context, actor *model.User, in RegisterInput) (*RegisterResponse, error) {
	requestedRole := strings.TrimSpace(in.Role)
	if requestedRole == "" {
		requestedRole = string(model.RoleEndUser)
	}

	if requestedRole == string(model.RoleAdmin) && !authz.IsAdmin(actor) {
		return nil, NewHTTPError(http.StatusForbidden, "Only admin users can create another admin.")
	}

	//匿名ならroleを強制的にend_userへ
	if actor == nil {
		requestedRole = string(model.RoleEndUser)
	}

	//全フィールドを一括検証（最初の失敗で止めない）
	fieldErrs := validation.NewPipeline().
		Add("email", in.Email, validation.Email).
		Add("username", in.Username, validation.Username).
		Add("phone", in.Phone, validation.Phone).
		Add("password", in.Password, validation.Password).
		AddOptional("first_name", in.FirstName, validation.Alpha("First name")).
		AddOptional("last_name", in.LastName, validation.Alpha("Last name")).
		Add("role", requestedRole, validation.RoleChoice).
		Run()
	if fieldErrs != nil {
		return nil, NewValidationError(fieldErrs)
	}

	//重複チェック（email/usernameは大文字小文字無視、phoneは完全一致）
	if errs := u.checkUnique(ctx, in.Email, in.Username, in.Phone, nil); errs != nil {
		return nil, NewValidationError(errs)
	}

	//パスワードは必ずハッシュ化して保存（平文保存しない）
	pwHash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	user := &model.User{
		Email:        in.Email,
		Username:     in.Username,
		Phone:        in.Phone,
		PasswordHash: string(pwHash),
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Role:         model.Role(requestedRole),
		IsActive:     true,
	}

	// adminはstaff/superuser相当の権限もまとめて付与
	if user.Role == model.RoleAdmin {
		user.IsStaff = true
		user.IsSuperuser = true
		user.IsVerified = true
	}

	if err := u.users.Create(ctx, user); err != nil {
		return nil, NewHTTPError(http.StatusConflict, "could not create user")
	}

	dto := toUserDTO(user)
	return &RegisterResponse{
		Message: "User registered successfully.",
		Data:    dto,
	}, nil
}

// ログイン。失敗理由は「認証情報→停止→未認証」の順で別メッセージを返す。
func (u *AuthUsecase) Login(ctx context.Context, in LoginInput) (*LoginResponse, error) {
	user, err := u.users.FindByEmail(ctx, in.Email)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if user == nil {
		return nil, NewHTTPError(http.StatusUnauthorized, msgInvalidCredentials)
	}

	//パスワード照合（bcrypt）
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return nil, NewHTTPError(http.StatusUnauthorized, msgInvalidCredentials)
	}

	//停止ユーザーはログイン不可
	if !user.IsActive {
		return nil, NewHTTPError(http.StatusUnauthorized, msgAccountDisabled)
	}

	//メール未認証も不可
	if !user.IsVerified {
		return nil, NewHTTPError(http.StatusUnauthorized, msgEmailNotVerified)
	}

	//last_login更新
	now := time.Now()
	user.LastLoginAt = &now
	_ = u.users.Update(ctx, user)

	//token pair発行
	tokens, err := u.issueTokenPair(user, now)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	return &LoginResponse{
		Message: "Login successful. Welcome " + user.Username + ".",
		Data:    toUserDTO(user),
		Tokens:  tokens,
	}, nil
}

// 自分のプロフィールを返す。
func (u *AuthUsecase) Profile(ctx context.Context, userID int64) (*UserDTO, error) {
	user, err := u.users.FindByID(ctx, userID)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if user == nil {
		return nil, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	dto := toUserDTO(user)
	return &dto, nil
}

// プロフィール更新（部分更新。roleは変更不可）。
// 自分の現在値と同じemail等を再保存しても重複扱いにしない。
func (u *AuthUsecase) UpdateProfile(ctx context.Context, userID int64, in UpdateProfileInput) (*UserDTO, error) {
	user, err := u.users.FindByID(ctx, userID)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if user == nil {
		return nil, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	fieldErrs := validation.NewPipeline().
		AddOptional("email", in.Email, validation.Email).
		AddOptional("username", in.Username, validation.Username).
		AddOptional("phone", in.Phone, validation.Phone).
		AddOptional("first_name", in.FirstName, validation.Alpha("First name")).
		AddOptional("last_name", in.LastName, validation.Alpha("Last name")).
		Run()
	if fieldErrs != nil {
		return nil, NewValidationError(fieldErrs)
	}

	if errs := u.checkUnique(ctx, in.Email, in.Username, in.Phone, user); errs != nil {
		return nil, NewValidationError(errs)
	}

	if in.Email != "" {
		user.Email = in.Email
	}
	if in.Username != "" {
		user.Username = in.Username
	}
	if in.Phone != "" {
		user.Phone = in.Phone
	}
	if in.FirstName != "" {
		user.FirstName = in.FirstName
	}
	if in.LastName != "" {
		user.LastName = in.LastName
	}

	if err := u.users.Update(ctx, user); err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	dto := toUserDTO(user)
	return &dto, nil
}

// パスワード変更。旧パスワードの照合が必須。
func (u *AuthUsecase) ChangePassword(ctx context.Context, userID int64, in ChangePasswordInput) error {
	user, err := u.users.FindByID(ctx, userID)
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if user == nil {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.OldPassword)); err != nil {
		return NewValidationError(validation.FieldErrors{"old_password": "Old password is incorrect."})
	}

	if err := validation.Password(in.NewPassword); err != nil {
		return NewValidationError(validation.FieldErrors{"new_password": err.Error()})
	}

	pwHash, err := bcrypt.GenerateFromPassword([]byte(in.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	user.PasswordHash = string(pwHash)
	if err := u.users.Update(ctx, user); err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return nil
}

// email/username/phoneの重複チェック。
// currentが指定されたら、その本人の現在値（正規化して比較）は衝突とみなさない。
func (u *AuthUsecase) checkUnique(ctx context.Context, email, username, phone string, current *model.User) validation.FieldErrors {
	errs := validation.FieldErrors{}

	if email != "" {
		if current == nil || !strings.EqualFold(current.Email, email) {
			if found, err := u.users.FindByEmail(ctx, email); err == nil && found != nil {
				if current == nil || found.ID != current.ID {
					errs["email"] = "Email already exists."
				}
			}
		}
	}

	if username != "" {
		if current == nil || !strings.EqualFold(current.Username, username) {
			if found, err := u.users.FindByUsername(ctx, username); err == nil && found != nil {
				if current == nil || found.ID != current.ID {
					errs["username"] = "Username already exists."
				}
			}
		}
	}

	if phone != "" {
		//phoneは大文字小文字の概念が無いので完全一致
		if current == nil || current.Phone != phone {
			if found, err := u.users.FindByPhone(ctx, phone); err == nil && found != nil {
				if current == nil || found.ID != current.ID {
					errs["phone"] = "Phone already exists."
				}
			}
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// jwt pair発行（HS256）
func (u *AuthUsecase) issueTokenPair(user *model.User, now time.Time) (TokenPairDTO, error) {
	access, err := u.signToken(user, now, accessTokenTTL, "access")
	if err != nil {
		return TokenPairDTO{}, err
	}

	refresh, err := u.signToken(user, now, refreshTokenTTL, "refresh")
	if err != nil {
		return TokenPairDTO{}, err
	}

	return TokenPairDTO{Access: access, Refresh: refresh}, nil
}

func (u *AuthUsecase) signToken(user *model.User, now time.Time, ttl time.Duration, typ string) (string, error) {
	claims := jwt.MapClaims{
		"sub":  user.ID,
		"role": string(user.Role),
		"typ":  typ,
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(u.cfg.JWTSecret))
}

// model.UserをAPI返却用DTOに変換。
func toUserDTO(u *model.User) UserDTO {
	return UserDTO{
		ID:         u.ID,
		Email:      u.Email,
		Username:   u.Username,
		Phone:      u.Phone,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		FullName:   u.FullName(),
		Role:       string(u.Role),
		IsActive:   u.IsActive,
		IsVerified: u.IsVerified,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}
