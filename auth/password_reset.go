package auth

import (
	"context"
	"errors"
	"strings"

	apperrors "github.com/jrsteele09/timetomeet/internal/errors"
	"github.com/jrsteele09/timetomeet/token"
	"github.com/jrsteele09/timetomeet/users"
	"github.com/rs/zerolog/log"
)

// ForgotPassword stores a fresh validation token on the user and mails them
// the reset link. A failed delivery is logged, the token stays valid.
func (as *AccountService) ForgotPassword(ctx context.Context, email string) error {
	if strings.TrimSpace(email) == "" {
		return apperrors.Mark(apperrors.ErrInvalidRequest, errors.New("email field is missing"))
	}

	user, err := as.repos.Users.GetByEmail(ctx, users.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return err
		}
		return apperrors.Mark(apperrors.ErrInternal, err)
	}

	issued, err := as.reset.Issuer.Issue(token.ClaimsFromUser(user))
	if err != nil {
		return err
	}

	if err := as.repos.Users.SetValidationToken(ctx, user.Email, issued.Token); err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return err
		}
		return apperrors.Mark(apperrors.ErrInternal, err)
	}

	as.send(ctx, Mail{
		To:      user.Email,
		Name:    user.FirstName,
		Subject: "Reset your password",
		Body:    "Use this link to choose a new password: " + as.resetURL + issued.Token,
	})
	log.Info().Str("userId", user.ID).Msg("Password reset requested")
	return nil
}

// SavePassword replaces the password of the user holding validationToken and
// clears the token so the link works once.
func (as *AccountService) SavePassword(ctx context.Context, validationToken, password string) error {
	if strings.TrimSpace(validationToken) == "" {
		return apperrors.Mark(apperrors.ErrInvalidRequest, errors.New("validationToken parameter is missing"))
	}
	if password == "" {
		return apperrors.Mark(apperrors.ErrInvalidRequest, errors.New("password parameter is missing"))
	}

	claims, err := as.reset.Verifier.VerifyWithoutSecret(validationToken)
	if err != nil {
		return err
	}

	user, err := as.repos.Users.GetByValidationToken(ctx, validationToken)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return err
		}
		return apperrors.Mark(apperrors.ErrInternal, err)
	}
	if user.ID != claims.UserID {
		return apperrors.ErrInvalidToken
	}

	passwordHash, err := users.HashPassword(password)
	if err != nil {
		return apperrors.Mark(apperrors.ErrInternal, err)
	}
	if err := as.repos.Users.UpdatePassword(ctx, user.ID, passwordHash); err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return err
		}
		return apperrors.Mark(apperrors.ErrInternal, err)
	}

	as.send(ctx, Mail{
		To:      user.Email,
		Name:    user.FirstName,
		Subject: "Your password was changed",
		Body:    "Your password has been updated.",
	})
	log.Info().Str("userId", user.ID).Msg("Password updated")
	return nil
}

func (as *AccountService) send(ctx context.Context, mail Mail) {
	if err := as.mailer.Send(ctx, mail); err != nil {
		log.Err(err).Str("to", mail.To).Str("subject", mail.Subject).Msg("Failed to send mail")
	}
}
