package user

import (
	"context"
	"crypto/rand"
	"math/big"
	"strings"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/chakula/core"
)

var (
	// errors
	ErrNotFound           = core.NewNotFoundError("user not found")
	ErrEmailExists        = errors.New("email already in use")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrWrongPassword      = errors.New("wrong password")
	ErrAccountBlocked     = core.NewForbiddenError("account blocked")
	ErrInvalidRole        = errors.New("invalid role")
	ErrDeleteAdmin        = core.NewForbiddenError("admins cannot delete their own account")
)

type (
	Repository interface {
		// CheckEmailUniqueness returns ErrEmailExists if another User than excludedUsers owns email.
		CheckEmailUniqueness(ctx context.Context, email string, excludedUsers []User, exec ...core.DBExecutor) error
		CreateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		// QueryUsers applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of first name, last name or email.
		QueryUsers(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]User, error)
		GetUser(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (User, error)
		UpdateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		UpdateOrCreateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		DeleteUsersByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error)
	}

	Service interface {
		CheckEmailUniqueness(email string, excludedUsers ...User) error
		Register(ctx context.Context, nu NewUser) (User, error)
		Authenticate(ctx context.Context, email, pwd string) (User, error)
		GetByID(ctx context.Context, id string) (User, error)
		GetByEmail(ctx context.Context, email string) (User, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error)
		UpdateProfile(ctx context.Context, usr User, up UpdateProfile) (User, error)
		ChangePassword(ctx context.Context, usr User, cp ChangePassword) (User, error)
		RequestPasswordReset(ctx context.Context, email string) error
		ResetPassword(ctx context.Context, rp ResetUserPassword) error
		SetStatus(ctx context.Context, id, status string) (User, error)
		// CreateAccount opens an account on behalf of someone else and returns it with its temporary password.
		// No mail is sent: callers running it in a transaction send SendAccountCreatedMail once committed.
		CreateAccount(ctx context.Context, role string, na NewAccount, exec ...core.DBExecutor) (User, string, error)
		SendAccountCreatedMail(usr User, tempPwd string)
		Delete(ctx context.Context, id string, exec ...core.DBExecutor) error
		DeleteSelf(ctx context.Context, usr User) error
		ContactUs(ctx context.Context, msg ContactMessage)
	}

	service struct {
		db       core.DB
		repo     Repository
		mailSvc  core.EmailService
		notifier core.Notifier
		conf     *core.Config
	}
)

var _ Service = (*service)(nil) // interface compliance check

func NewService(db core.DB, repo Repository, mailSvc core.EmailService, notifier core.Notifier, conf *core.Config) Service {
	secretKey = []byte(conf.SecretKey)
	passwordResetTimeoutDelta = conf.Server.PasswordResetTimeoutDelta
	return &service{
		db:       db,
		repo:     repo,
		mailSvc:  mailSvc,
		notifier: notifier,
		conf:     conf,
	}
}

func (svc *service) CheckEmailUniqueness(email string, excludedUsers ...User) error {
	if err := svc.repo.CheckEmailUniqueness(context.Background(), email, excludedUsers); err != nil {
		if errors.Cause(err) == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: ErrEmailExists.Error()})
		}
		return err
	}
	return nil
}

func (svc *service) Register(ctx context.Context, nu NewUser) (User, error) {
	now := core.Now()
	usr := User{
		FirstName: nu.FirstName,
		LastName:  nu.LastName,
		Email:     nu.Email,
		Phone:     nu.Phone,
		Address:   nu.Address,
		Role:      RoleClient,
		Status:    StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}
	usr, err := svc.repo.CreateUser(ctx, usr)
	if err != nil {
		return User{}, errors.Wrap(err, "creating user")
	}
	svc.sendWelcomeMail(usr)
	return usr, nil
}

func (svc *service) Authenticate(ctx context.Context, email, pwd string) (User, error) {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return User{}, ErrInvalidCredentials
		}
		return User{}, errors.Wrap(err, "finding user by email")
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return User{}, ErrInvalidCredentials
	}
	if usr.IsBlocked() {
		return User{}, ErrAccountBlocked
	}

	usr.LastLogin = null.TimeFrom(core.Now())
	usr, err = svc.repo.UpdateUser(ctx, usr)
	return usr, errors.Wrap(err, "setting last login")
}

func (svc *service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}

func (svc *service) GetByEmail(ctx context.Context, email string) (User, error) {
	email = core.CleanString(email, true /* lower */)
	if email == "" {
		return User{}, ErrNotFound
	}
	return svc.repo.GetUser(ctx, GetFilter{Email: email})
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error) {
	return svc.repo.QueryUsers(ctx, filter, ordering)
}

func (svc *service) UpdateProfile(ctx context.Context, usr User, up UpdateProfile) (User, error) {
	usr.FirstName = up.FirstName
	usr.LastName = up.LastName
	usr.Email = up.Email
	usr.Phone = up.Phone
	usr.Address = up.Address
	usr.PhotoURL = up.PhotoURL
	usr.UpdatedAt = core.Now()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *service) ChangePassword(ctx context.Context, usr User, cp ChangePassword) (User, error) {
	if err := usr.CheckPassword(cp.OldPassword); err != nil {
		return User{}, core.NewValidationError(ErrWrongPassword, core.FieldError{Field: "old_password", Error: ErrWrongPassword.Error()})
	}
	if err := usr.SetPassword(cp.Password); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}
	usr.UpdatedAt = core.Now()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if usr.IsBlocked() {
		return ErrAccountBlocked
	}
	svc.sendPasswordResetMail(usr, makeToken(usr))
	return nil
}

func (svc *service) ResetPassword(ctx context.Context, rp ResetUserPassword) error {
	invalidErr := core.NewValidationError(errors.New("invalid reset link"))

	uid, err := decodeUID(rp.UID)
	if err != nil {
		return invalidErr
	}
	usr, err := svc.GetByID(ctx, uid)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return invalidErr
		}
		return errors.Wrap(err, "finding user")
	}
	if err = verifyToken(usr, rp.Token); err != nil {
		if err == errTokenExpired {
			return core.NewValidationError(errors.New("reset link has expired"))
		}
		return invalidErr
	}

	if err = usr.SetPassword(rp.Password); err != nil {
		return errors.Wrap(err, "setting password")
	}
	usr.UpdatedAt = core.Now()
	_, err = svc.repo.UpdateUser(ctx, usr)
	return errors.Wrap(err, "updating user")
}

func (svc *service) SetStatus(ctx context.Context, id, status string) (User, error) {
	usr, err := svc.GetByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	if usr.Status == status {
		return usr, nil
	}
	usr.Status = status
	usr.UpdatedAt = core.Now()
	if usr, err = svc.repo.UpdateUser(ctx, usr); err != nil {
		return User{}, errors.Wrap(err, "updating user status")
	}

	switch status {
	case StatusBlocked:
		svc.notifier.Notify(ctx, usr.ID, "Your account has been suspended.")
	case StatusActive:
		svc.notifier.Notify(ctx, usr.ID, "Your account has been activated.")
	}
	svc.sendAccountStatusMail(usr)
	return usr, nil
}

func (svc *service) CreateAccount(ctx context.Context, role string, na NewAccount, exec ...core.DBExecutor) (User, string, error) {
	if role != RoleRestaurant && role != RoleCourier {
		return User{}, "", ErrInvalidRole
	}
	tempPwd, err := generatePassword(12)
	if err != nil {
		return User{}, "", errors.Wrap(err, "generating password")
	}

	now := core.Now()
	usr := User{
		FirstName: na.FirstName,
		LastName:  na.LastName,
		Email:     na.Email,
		Phone:     na.Phone,
		Address:   na.Address,
		Role:      role,
		Status:    StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err = usr.SetPassword(tempPwd); err != nil {
		return User{}, "", errors.Wrap(err, "setting password")
	}
	usr, err = svc.repo.CreateUser(ctx, usr, exec...)
	if err != nil {
		return User{}, "", errors.Wrap(err, "creating user")
	}
	return usr, tempPwd, nil
}

func (svc *service) SendAccountCreatedMail(usr User, tempPwd string) {
	svc.sendAccountCreatedMail(usr, tempPwd)
}

func (svc *service) Delete(ctx context.Context, id string, exec ...core.DBExecutor) error {
	usr, err := svc.repo.GetUser(ctx, GetFilter{ID: id}, exec...)
	if err != nil {
		return err
	}
	if _, err = svc.repo.DeleteUsersByID(ctx, []string{usr.ID}, exec...); err != nil {
		return errors.Wrap(err, "deleting user")
	}
	svc.sendAccountDeletedMail(usr)
	return nil
}

func (svc *service) DeleteSelf(ctx context.Context, usr User) error {
	if usr.IsAdmin() {
		return ErrDeleteAdmin
	}
	_, err := svc.repo.DeleteUsersByID(ctx, []string{usr.ID})
	return errors.Wrap(err, "deleting user")
}

func (svc *service) ContactUs(_ context.Context, msg ContactMessage) {
	svc.sendContactMail(msg)
}

const pwdAlphabet = "abcdefghijkmnopqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// generatePassword returns a random password meeting the password policy.
func generatePassword(n int) (string, error) {
	var b strings.Builder
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(pwdAlphabet))))
		if err != nil {
			return "", err
		}
		b.WriteByte(pwdAlphabet[idx.Int64()])
	}
	// guarantee the complexity rules whatever was drawn
	b.WriteString("a7B#")
	return b.String(), nil
}
