package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sangini/invoicehub/db/models"
	"github.com/sangini/invoicehub/events"
	"github.com/sangini/invoicehub/lib/cache"
	"github.com/sangini/invoicehub/lib/oracle"
	"github.com/sangini/invoicehub/lib/tokens"
	"github.com/labstack/gommon/random"
	"github.com/uptrace/bun"
	"github.com/ziflex/lecho/v3"
	"golang.org/x/crypto/bcrypt"
)

const alphaNumBytes = random.Alphanumeric

// Failed logins per account within the window before further attempts
// are rejected outright.
const (
	maxFailedLogins   = 10
	failedLoginWindow = 10 * time.Minute
)

// InvoicehubService owns every external collaborator the core needs: the
// document store, the settlement oracle, the event publisher and the
// ephemeral nonce/throttle store. Controllers stay thin and delegate here.
type InvoicehubService struct {
	Config     *Config
	DB         *bun.DB
	Logger     *lecho.Logger
	Oracle     oracle.Client
	Publisher  events.Publisher
	NonceStore cache.Store
}

func (svc *InvoicehubService) GenerateToken(ctx context.Context, login, password string) (accessToken, refreshToken string, err error) {
	var user models.User

	switch {
	case login != "" || password != "":
		{
			if svc.loginThrottled(ctx, login) {
				return "", "", fmt.Errorf("bad auth")
			}
			if err := svc.DB.NewSelect().Model(&user).Where("login = ?", login).Scan(ctx); err != nil {
				return "", "", fmt.Errorf("bad auth")
			}
			if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
				return "", "", fmt.Errorf("bad auth")
			}
			svc.clearLoginThrottle(ctx, login)
		}
	default:
		{
			return "", "", fmt.Errorf("login and password are required")
		}
	}

	if user.Deactivated {
		return "", "", fmt.Errorf("bad auth")
	}

	accessToken, err = tokens.GenerateAccessToken(svc.Config.JWTSecret, svc.Config.JWTAccessTokenExpiry, &user)
	if err != nil {
		return "", "", err
	}

	refreshToken, err = tokens.GenerateRefreshToken(svc.Config.JWTSecret, svc.Config.JWTRefreshTokenExpiry, &user)
	if err != nil {
		return "", "", err
	}
	return accessToken, refreshToken, nil
}

// loginThrottled counts the attempt and reports whether the account has
// exceeded the window budget. Successful logins clear the counter, so only
// sustained failures trip it.
func (svc *InvoicehubService) loginThrottled(ctx context.Context, login string) bool {
	if svc.NonceStore == nil {
		return false
	}
	attempts, err := svc.NonceStore.Incr(ctx, "login_attempts:"+login, failedLoginWindow)
	if err != nil {
		svc.Logger.Errorf("Failed to count login attempt for %s: %v", login, err)
		return false
	}
	return attempts > maxFailedLogins
}

func (svc *InvoicehubService) clearLoginThrottle(ctx context.Context, login string) {
	if svc.NonceStore == nil {
		return
	}
	if err := svc.NonceStore.Delete(ctx, "login_attempts:"+login); err != nil {
		svc.Logger.Errorf("Failed to clear login throttle for %s: %v", login, err)
	}
}

func (svc *InvoicehubService) publishInvoiceEvent(ctx context.Context, key string, invoice *models.Invoice) {
	if svc.Publisher == nil {
		return
	}
	if err := svc.Publisher.PublishInvoice(ctx, key, invoice); err != nil {
		svc.Logger.Errorf("Failed to publish invoice event %s invoice_num:%s: %v", key, invoice.InvoiceNum, err)
	}
}

func (svc *InvoicehubService) publishInvestmentEvent(ctx context.Context, key string, investment *models.Investment) {
	if svc.Publisher == nil {
		return
	}
	if err := svc.Publisher.PublishInvestment(ctx, key, investment); err != nil {
		svc.Logger.Errorf("Failed to publish investment event %s id:%d: %v", key, investment.ID, err)
	}
}
