package http

import (
	"context"
	"log"
	"net/http"
	"time"

	"staurox/internal/config"
	"staurox/internal/domain"
	"staurox/internal/infra/crypto"
	"staurox/internal/infra/db"
	"staurox/internal/infra/logdb"
	"staurox/internal/infra/logmem"
	"staurox/internal/infra/policyopa"
	"staurox/internal/infra/ratelimit"
	"staurox/internal/usecase"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Server struct {
	cfg   config.Config
	store *db.Store
	r     *gin.Engine

	submitUC *usecase.VerifyAndAdmit
	queryUC  *usecase.RecentVerifications
	logs     usecase.LogStore

	rateLimiter       domain.RateLimiter
	rateLimitRequests int
	rateLimitWindow   time.Duration
}

func NewServer(cfg config.Config, store *db.Store) *Server {
	r := gin.New()
	r.Use(gin.Recovery(), requestIDMiddleware())

	s := &Server{cfg: cfg, store: store, r: r}
	s.initDeps()
	s.routes()
	return s
}

type ServerDeps struct {
	Submit      *usecase.VerifyAndAdmit
	Query       *usecase.RecentVerifications
	Logs        usecase.LogStore
	RateLimiter domain.RateLimiter
}

func NewServerWithDeps(cfg config.Config, deps ServerDeps) *Server {
	r := gin.New()
	r.Use(gin.Recovery(), requestIDMiddleware())

	s := &Server{
		cfg:      cfg,
		r:        r,
		submitUC: deps.Submit,
		queryUC:  deps.Query,
		logs:     deps.Logs,
	}
	if s.logs == nil && s.submitUC != nil {
		s.logs = s.submitUC.Logs
	}
	if s.queryUC == nil && s.logs != nil {
		s.queryUC = &usecase.RecentVerifications{Logs: s.logs, MaxLimit: cfg.QueryMaxLimit}
	}
	s.initRateLimit(deps.RateLimiter)
	s.routes()
	return s
}

func (s *Server) initDeps() {
	var logs usecase.LogStore
	if s.store != nil && s.store.DB != nil {
		logs = logdb.New(s.store)
	} else {
		logs = logmem.New()
	}
	s.logs = logs

	s.queryUC = &usecase.RecentVerifications{
		Logs:     logs,
		MaxLimit: s.cfg.QueryMaxLimit,
	}

	if s.cfg.GuardianKeysHex != "" {
		guardians, err := crypto.NewGuardianSetFromHex(s.cfg.GuardianKeysHex, s.cfg.GuardianQuorum)
		if err != nil {
			log.Printf("guardian set unavailable, submissions disabled: %v", err)
		} else {
			s.submitUC = &usecase.VerifyAndAdmit{
				Logs:           logs,
				Verifier:       guardians,
				Capacity:       s.cfg.LogCapacity,
				StalenessBound: s.cfg.StalenessBound(),
				SkewTolerance:  s.cfg.SkewTolerance(),
				GuardianCount:  guardians.Size(),
			}
			if s.cfg.PolicyBundlePath != "" {
				engine, err := policyopa.NewEngineFromBundlePath(context.Background(), s.cfg.PolicyBundlePath, s.cfg.PolicyBundleID)
				if err != nil {
					log.Printf("policy bundle unavailable, admission policy disabled: %v", err)
				} else {
					s.submitUC.Policy = engine
				}
			}
		}
	} else {
		log.Printf("GUARDIAN_KEYS_HEX not set; submissions disabled, queries only.")
	}

	s.initRateLimit(nil)
}

func (s *Server) initRateLimit(override domain.RateLimiter) {
	if override != nil {
		s.rateLimiter = override
	}
	if s.rateLimiter == nil && s.cfg.RateLimitRequests > 0 {
		if s.cfg.RedisAddr != "" {
			if limiter, err := ratelimit.NewRedisLimiter(s.cfg.RedisAddr, s.cfg.RedisPassword, s.cfg.RedisDB, nil); err == nil {
				s.rateLimiter = limiter
			}
		}
		if s.rateLimiter == nil {
			s.rateLimiter = ratelimit.NewMemoryLimiter(ratelimit.MemoryLimiterConfig{
				MaxKeys: s.cfg.RateLimitMaxKeys,
			})
		}
	}
	s.rateLimitRequests = s.cfg.RateLimitRequests
	s.rateLimitWindow = s.cfg.RateLimitWindow()
}

func (s *Server) routes() {
	s.r.GET("/healthz", func(c *gin.Context) {
		mode := "mem"
		if s.store != nil && s.store.DB != nil {
			mode = "db"
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "mode": mode})
	})

	v1 := s.r.Group("/v1")
	{
		v1.POST("/bridges", s.handleCreateBridge)
		v1.GET("/bridges/:bridge_id", s.handleBridgeInfo)
		v1.POST("/bridges/:bridge_id/attestations", s.rateLimitMiddleware(), s.handleSubmit)
		v1.GET("/bridges/:bridge_id/verifications", s.handleRecent)
		v1.GET("/bridges/:bridge_id/verifications/:sequence", s.handleGetBySequence)
	}
}

func (s *Server) Run() error {
	return s.r.Run(s.cfg.HTTPAddr)
}

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Writer.Header().Set("X-Request-ID", id)
		c.Next()
	}
}

func (s *Server) rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.rateLimiter == nil || s.rateLimitRequests <= 0 {
			c.Next()
			return
		}
		key := "submit:" + c.ClientIP()
		decision, err := s.rateLimiter.Allow(c.Request.Context(), key, s.rateLimitRequests, s.rateLimitWindow)
		if err != nil {
			// Fail open: a broken limiter must not block submissions.
			c.Next()
			return
		}
		if !decision.Allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, errorResponse{
				Code:    "RATE_LIMITED",
				Message: "too many requests",
			})
			return
		}
		c.Next()
	}
}
