// auth.go — проверка Firebase ID-токенов и допуск модераторов.
//
// Двухступенчатая защита /api/admin:
//  1. FirebaseAuth.Middleware() — криптографическая проверка ID-токена
//     (подпись RS256 через Google JWKS, issuer, audience, срок действия).
//     Провал — 401, дальше запрос не идёт.
//  2. RequireModerator() — проверка uid по whitelist модераторов в БД.
//     Валидный токен без записи в whitelist — 403.
//
// Разница 401/403 принципиальна: 401 — «кто ты, неизвестно»,
// 403 — «ты известен, но не модератор».
package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/MicahParks/jwkset"
	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"

	apierrors "github.com/natethegreat418/movemaps/internal/api/errors"
)

// contextKey — тип для ключей контекста (избегаем коллизий).
type contextKey string

// ContextKeyClaims — извлечённые claims в контексте запроса.
const ContextKeyClaims contextKey = "auth_claims"

// AuthClaims — проверенная личность вызывающего из Firebase ID-токена.
type AuthClaims struct {
	// UID — Firebase uid (sub из токена). Ключ whitelist модераторов.
	UID string
	// Email — email из токена, может отсутствовать.
	Email string
}

// firebaseClaims — raw claims Firebase ID-токена.
type firebaseClaims struct {
	jwt.RegisteredClaims
	// Email — электронная почта пользователя.
	Email string `json:"email,omitempty"`
}

// FirebaseAuth — middleware аутентификации по Firebase ID-токенам.
type FirebaseAuth struct {
	jwks      keyfunc.Keyfunc
	issuer    string
	audience  string
	jwtLeeway time.Duration
	logger    *slog.Logger
}

// NewFirebaseAuth создаёт middleware с JWKS из Google.
// jwksURL — endpoint ключей подписи securetoken.
// issuer — https://securetoken.google.com/<project-id>.
// audience — Firebase project ID.
// jwksClientTimeout — таймаут HTTP-клиента JWKS (MM_AUTH_JWKS_CLIENT_TIMEOUT).
// jwksRefreshInterval — интервал обновления ключей (MM_AUTH_JWKS_REFRESH_INTERVAL).
// jwtLeeway — допустимое отклонение времени при проверке JWT (MM_JWT_LEEWAY).
func NewFirebaseAuth(
	jwksURL string,
	issuer string,
	audience string,
	jwksClientTimeout time.Duration,
	jwksRefreshInterval time.Duration,
	jwtLeeway time.Duration,
	logger *slog.Logger,
) (*FirebaseAuth, error) {
	httpClient := &http.Client{Timeout: jwksClientTimeout}

	// JWKS Storage с фоновым обновлением.
	// NoErrorReturnFirstHTTPReq — стартуем даже если Google ещё недоступен.
	storage, err := jwkset.NewStorageFromHTTP(jwksURL, jwkset.HTTPClientStorageOptions{
		Client:                    httpClient,
		NoErrorReturnFirstHTTPReq: true,
		RefreshInterval:           jwksRefreshInterval,
		RefreshErrorHandler: func(_ context.Context, err error) {
			logger.Error("Ошибка обновления JWKS",
				slog.String("error", err.Error()),
				slog.String("url", jwksURL),
			)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("создание JWKS storage: %w", err)
	}

	k, err := keyfunc.New(keyfunc.Options{
		Storage: storage,
	})
	if err != nil {
		return nil, fmt.Errorf("создание keyfunc: %w", err)
	}

	return &FirebaseAuth{
		jwks:      k,
		issuer:    issuer,
		audience:  audience,
		jwtLeeway: jwtLeeway,
		logger:    logger.With(slog.String("component", "firebase_auth")),
	}, nil
}

// NewFirebaseAuthWithKeyfunc создаёт middleware с предоставленной keyfunc.
// Используется в тестах для подстановки локальных ключей.
func NewFirebaseAuthWithKeyfunc(
	kf keyfunc.Keyfunc,
	issuer string,
	audience string,
	logger *slog.Logger,
) *FirebaseAuth {
	return &FirebaseAuth{
		jwks:     kf,
		issuer:   issuer,
		audience: audience,
		logger:   logger.With(slog.String("component", "firebase_auth")),
	}
}

// Middleware возвращает HTTP middleware аутентификации.
// Извлекает Bearer token, валидирует подпись (RS256), issuer, audience
// и срок действия, помещает AuthClaims в контекст.
func (f *FirebaseAuth) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				apierrors.Unauthorized(w, "Отсутствует заголовок Authorization")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				apierrors.Unauthorized(w, "Неверный формат Authorization: ожидается Bearer <token>")
				return
			}

			tokenString := parts[1]
			if tokenString == "" {
				apierrors.Unauthorized(w, "Пустой Bearer token")
				return
			}

			rawClaims := &firebaseClaims{}
			parserOpts := []jwt.ParserOption{
				jwt.WithValidMethods([]string{"RS256"}),
				jwt.WithExpirationRequired(),
				jwt.WithLeeway(f.jwtLeeway),
				jwt.WithIssuer(f.issuer),
				jwt.WithAudience(f.audience),
			}

			token, err := jwt.ParseWithClaims(tokenString, rawClaims, f.jwks.KeyfuncCtx(r.Context()), parserOpts...)
			if err != nil {
				f.logger.Debug("Проверка ID-токена не пройдена",
					slog.String("error", err.Error()),
					slog.String("remote_addr", r.RemoteAddr),
				)
				apierrors.Unauthorized(w, "Невалидный или просроченный токен")
				return
			}
			if !token.Valid {
				apierrors.Unauthorized(w, "Невалидный токен")
				return
			}

			uid, err := rawClaims.GetSubject()
			if err != nil || uid == "" {
				apierrors.Unauthorized(w, "Отсутствует sub в токене")
				return
			}

			claims := &AuthClaims{
				UID:   uid,
				Email: rawClaims.Email,
			}
			ctx := context.WithValue(r.Context(), ContextKeyClaims, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Close освобождает ресурсы middleware.
func (f *FirebaseAuth) Close() {
	// keyfunc v3 не требует явного закрытия
}

// ModeratorProvider — проверка членства uid в whitelist модераторов.
// Реализуется repository.ModeratorRepository.
type ModeratorProvider interface {
	Exists(ctx context.Context, uid string) (bool, error)
}

// RequireModerator возвращает middleware, требующий членства в whitelist.
// Должен использоваться ПОСЛЕ FirebaseAuth.Middleware(): без claims — 401.
// Ошибка store при проверке — 503, а не 403: отказ в правах из-за
// недоступности БД нельзя отличить от настоящего отказа.
func RequireModerator(provider ModeratorProvider, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := ClaimsFromContext(r.Context())
			if claims == nil {
				apierrors.Unauthorized(w, "Отсутствуют claims в контексте")
				return
			}

			ok, err := provider.Exists(r.Context(), claims.UID)
			if err != nil {
				logger.Error("Ошибка проверки whitelist модераторов",
					slog.String("uid", claims.UID),
					slog.String("error", err.Error()),
				)
				apierrors.StoreUnavailable(w, "Не удалось проверить права доступа")
				return
			}
			if !ok {
				apierrors.Forbidden(w, "Пользователь не является модератором")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// --- Context helpers ---

// ClaimsFromContext извлекает AuthClaims из контекста запроса.
// Возвращает nil, если claims не найдены.
func ClaimsFromContext(ctx context.Context) *AuthClaims {
	claims, _ := ctx.Value(ContextKeyClaims).(*AuthClaims)
	return claims
}

// UIDFromContext извлекает Firebase uid из контекста запроса.
// Возвращает пустую строку, если claims не найдены.
func UIDFromContext(ctx context.Context) string {
	claims := ClaimsFromContext(ctx)
	if claims == nil {
		return ""
	}
	return claims.UID
}

// --- ReadinessChecker для Google JWKS ---

// IdentityReadinessChecker — проверка доступности ключей подписи Google.
type IdentityReadinessChecker struct {
	jwksURL string
	client  *http.Client
}

// NewIdentityReadinessChecker создаёт checker доступности JWKS endpoint.
func NewIdentityReadinessChecker(jwksURL string, timeout time.Duration) *IdentityReadinessChecker {
	return &IdentityReadinessChecker{
		jwksURL: jwksURL,
		client:  &http.Client{Timeout: timeout},
	}
}

const statusFail = "fail"

// CheckReady проверяет доступность JWKS endpoint.
func (c *IdentityReadinessChecker) CheckReady() (status, message string) {
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, c.jwksURL, http.NoBody)
	if err != nil {
		return statusFail, "ошибка создания запроса: " + err.Error()
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return statusFail, fmt.Sprintf("Google JWKS недоступен: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusFail, fmt.Sprintf("Google JWKS вернул статус %d", resp.StatusCode)
	}

	var jwksResp struct {
		Keys []json.RawMessage `json:"keys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&jwksResp); err != nil {
		return "degraded", fmt.Sprintf("Google JWKS: невалидный JSON: %v", err)
	}
	if len(jwksResp.Keys) == 0 {
		return "degraded", "Google JWKS: нет ключей"
	}

	return "ok", fmt.Sprintf("JWKS доступен, ключей: %d", len(jwksResp.Keys))
}
