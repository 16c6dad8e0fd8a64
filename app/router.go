// Package app wires every endpoint to the gin engine
package app

import (
	"time"

	"bitwise74/account-api/app/admin"
	"bitwise74/account-api/app/apikey"
	"bitwise74/account-api/app/notification"
	"bitwise74/account-api/app/root"
	"bitwise74/account-api/app/user"
	"bitwise74/account-api/internal"
	"bitwise74/account-api/internal/model"
	"bitwise74/account-api/pkg/httpx"
	"bitwise74/account-api/pkg/middleware"
	"bitwise74/account-api/validators"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	gray  = "\x1b[90m"
	reset = "\x1b[0m"
)

type handler func(c *gin.Context, d *internal.Deps)

// NewRouter builds the engine. limiter may be nil, its Cleanup loop is run by
// the caller.
func NewRouter(d *internal.Deps, limiter *middleware.RateLimiter) (*gin.Engine, error) {
	if err := validators.Register(); err != nil {
		return nil, err
	}

	router := gin.New()

	router.Use(
		cors.New(cors.Config{
			AllowOrigins:     viper.GetStringSlice("host.cors"),
			AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "HEAD", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
			ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
		gin.Recovery(),
		middleware.NewRequestIDMiddleware(),
		ginzap.GinzapWithConfig(zap.L(), &ginzap.Config{
			TimeFormat: "15:04:05.000",
			UTC:        true,
			Skipper: func(c *gin.Context) bool {
				return c.Request.Method == "HEAD"
			},
			Context: func(c *gin.Context) []zapcore.Field {
				fields := []zapcore.Field{}

				if v := httpx.RequestID(c); v != "" {
					fields = append(fields, zap.String("request_id", v))
				}

				if u := httpx.CurrentUser(c); u != nil {
					fields = append(fields, zap.String("userID", u.ID))
				}

				return fields
			},
		}),
	)

	router.HandleMethodNotAllowed = true
	router.RedirectFixedPath = true

	with := func(h handler) gin.HandlerFunc {
		return func(c *gin.Context) { h(c, d) }
	}

	protect := middleware.Protect(d.Accounts)
	adminOnly := middleware.RestrictTo(model.RoleAdmin)

	base := []gin.HandlerFunc{middleware.BodySizeLimiter(viper.GetInt64("security.body_limit"))}
	if limiter != nil {
		base = append(base, limiter.Handler())
	}

	m := router.Group("/api", base...)
	{
		// HEAD /api/heartbeat 		-> Used to check if the server is alive
		m.HEAD("/heartbeat", root.Heartbeat)

		// HEAD /api/validate		-> Checks that the session is still valid
		m.HEAD("/validate", protect, root.Validate)
	}

	u := m.Group("/users")
	{
		// POST /api/users/signup		-> Registers a new inactive user
		u.POST("/signup", with(user.Signup))

		// POST /api/users/login		-> Logs in a user and sets the session cookie
		u.POST("/login", with(user.Login))

		// GET /api/users/logout		-> Clears the session cookie
		u.GET("/logout", user.Logout)

		// GET /api/users/me			-> Returns the logged in user, if any
		u.GET("/me", middleware.Optional(d.Accounts), with(user.Me))

		// PATCH /api/users/activationAccount/:token	-> Activates an account
		u.PATCH("/activationAccount/:token", with(user.ActivateAccount))

		// POST /api/users/forgotPassword	-> Mails a password reset link
		u.POST("/forgotPassword", with(user.ForgotPassword))

		// PATCH /api/users/resetPassword/:token	-> Sets a new password from a reset link
		u.PATCH("/resetPassword/:token", with(user.ResetPassword))

		// PATCH /api/users/resetEmail/:token	-> Sets a new email from a reset link
		u.PATCH("/resetEmail/:token", with(user.ResetEmail))
	}

	me := u.Group("", protect)
	{
		// PATCH /api/users/updatePassword	-> Changes the password of the logged in user
		me.PATCH("/updatePassword", with(user.UpdatePassword))

		// POST /api/users/forgotEmail		-> Mails an email reset link
		me.POST("/forgotEmail", with(user.ForgotEmail))

		// PATCH /api/users/updateMe		-> Updates the name of the logged in user
		me.PATCH("/updateMe", with(user.UpdateMe))

		// PATCH /api/users/disableAccount	-> Disables the account until the next login
		me.PATCH("/disableAccount", with(user.DisableAccount))

		// DELETE /api/users/deleteMe		-> Deletes the account and everything it owns
		me.DELETE("/deleteMe", with(user.DeleteMe))
	}

	k := m.Group("/apiKeys")
	{
		// PATCH /api/apiKeys/confirmRenewal/:token	-> Replaces a key from a renewal link
		k.PATCH("/confirmRenewal/:token", with(apikey.ConfirmRenewal))

		// GET /api/apiKeys			-> Lists the keys of the logged in user
		k.GET("", protect, with(apikey.List))

		// POST /api/apiKeys			-> Requests a new key, pending admin approval
		k.POST("", protect, with(apikey.Request))

		// PATCH /api/apiKeys/renewal/:idApi	-> Mails a renewal link for an active key
		k.PATCH("/renewal/:idApi", protect, with(apikey.RequestRenewal))

		// DELETE /api/apiKeys/deleteApiKey/:idApi	-> Deletes one of the user's keys
		k.DELETE("/deleteApiKey/:idApi", protect, with(apikey.Delete))
	}

	n := m.Group("/notifications", protect)
	{
		// GET /api/notifications		-> Lists the user's notifications
		n.GET("", with(notification.List))

		// PATCH /api/notifications/readAll	-> Marks every notification as read
		n.PATCH("/readAll", with(notification.ReadAll))

		// PATCH /api/notifications/:id/read	-> Marks one notification as read
		n.PATCH("/:id/read", with(notification.Read))

		// PATCH /api/notifications/:id/view	-> Marks one notification as viewed
		n.PATCH("/:id/view", with(notification.View))

		// DELETE /api/notifications/:id	-> Deletes one notification
		n.DELETE("/:id", with(notification.Delete))
	}

	a := m.Group("/admin", protect, adminOnly)
	{
		// GET /api/admin/users			-> Lists every user
		a.GET("/users", with(admin.ListUsers))

		// GET /api/admin/users/:idUser		-> Returns one user
		a.GET("/users/:idUser", with(admin.GetUser))

		// DELETE /api/admin/users/:idUser	-> Deletes a user and everything they own
		a.DELETE("/users/:idUser", with(admin.DeleteUser))

		// GET /api/admin/apiKeys		-> Lists every key set
		a.GET("/apiKeys", with(admin.ListAPIKeys))

		// PATCH /api/admin/users/:idUser/apiKeys/activeApiKey/:idApi	-> Approves or denies a key
		a.PATCH("/users/:idUser/apiKeys/activeApiKey/:idApi", with(admin.DecideAPIKey))

		// DELETE /api/admin/users/:idUser/apiKeys/:idApi	-> Deletes a key of any user
		a.DELETE("/users/:idUser/apiKeys/:idApi", with(admin.DeleteAPIKey))
	}

	return router, nil
}

// MakeLogger replaces the global zap logger. Production gets JSON output at
// the configured level, development gets colored console output.
func MakeLogger() error {
	level, err := zapcore.ParseLevel(viper.GetString("app.log_level"))
	if err != nil {
		return err
	}

	var cfg zap.Config
	if viper.GetString("app.env") == "production" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cfg.EncoderConfig.EncodeTime = func(t time.Time, pae zapcore.PrimitiveArrayEncoder) {
			pae.AppendString(gray + t.Format("15:04:05.000") + reset)
		}
		cfg.EncoderConfig.EncodeCaller = func(ec zapcore.EntryCaller, pae zapcore.PrimitiveArrayEncoder) {
			pae.AppendString(gray + ec.TrimmedPath() + reset)
		}
	}

	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.DisableStacktrace = true

	log, err := cfg.Build()
	if err != nil {
		return err
	}

	zap.ReplaceGlobals(log)
	return nil
}
