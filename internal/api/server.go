// Package api exposes the reconciliation service over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/mkallert/bankrec-backend/internal/api/dto"
	"github.com/mkallert/bankrec-backend/internal/application/reconcile"
	"github.com/mkallert/bankrec-backend/internal/application/service"
	"github.com/mkallert/bankrec-backend/internal/domain/matcher"
	"github.com/mkallert/bankrec-backend/internal/domain/recon"
	"github.com/mkallert/bankrec-backend/internal/domain/txn"
)

const dateLayout = "2006-01-02"

// Server wires the reconciliation service into a gin router.
type Server struct {
	svc            *service.ReconService
	logger         *slog.Logger
	allowedOrigins []string
}

// NewServer creates an API server around the service.
func NewServer(svc *service.ReconService, logger *slog.Logger, allowedOrigins []string) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	return &Server{svc: svc, logger: logger, allowedOrigins: allowedOrigins}
}

// Router builds the HTTP routes.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/health"},
	}))

	router.Use(cors.New(cors.Config{
		AllowOrigins:     s.allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", s.handleHealth)

	api := router.Group("/api")
	{
		api.POST("/reconcile/analyze", s.handleAnalyze)
		api.POST("/reconcile/execute", s.handleExecute)
	}

	return router
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, dto.NewHealthResponse())
}

func (s *Server) handleAnalyze(c *gin.Context) {
	var req dto.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.BadRequestError(err.Error()))
		return
	}

	target, err := decimal.NewFromString(req.TargetBalance)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.BadRequestError(fmt.Sprintf("invalid target_balance: %s", req.TargetBalance)))
		return
	}

	externals, err := externalsFromRequest(req.Transactions)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.BadRequestError(err.Error()))
		return
	}

	svcReq := service.AnalyzeRequest{
		BudgetID:      req.BudgetID,
		AccountID:     req.AccountID,
		Currency:      req.Currency,
		StatementCSV:  req.StatementCSV,
		Externals:     externals,
		TargetBalance: target,
		Config:        matchingConfig(req.Matching),
	}

	if svcReq.WindowStart, err = optionalDate(req.WindowStart, "window_start"); err != nil {
		c.JSON(http.StatusBadRequest, dto.BadRequestError(err.Error()))
		return
	}
	if svcReq.WindowEnd, err = optionalDate(req.WindowEnd, "window_end"); err != nil {
		c.JSON(http.StatusBadRequest, dto.BadRequestError(err.Error()))
		return
	}

	result, err := s.svc.Analyze(c.Request.Context(), svcReq)
	if err != nil {
		s.logger.Error("analysis failed", "account_id", req.AccountID, "error", err)
		c.JSON(http.StatusInternalServerError, dto.InternalError())
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) handleExecute(c *gin.Context) {
	var req dto.ExecuteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.BadRequestError(err.Error()))
		return
	}

	var analysis recon.Analysis
	if err := json.Unmarshal(req.Analysis, &analysis); err != nil {
		c.JSON(http.StatusBadRequest, dto.BadRequestError(fmt.Sprintf("invalid analysis payload: %v", err)))
		return
	}

	// Destructive by default is the wrong default.
	dryRun := true
	if req.DryRun != nil {
		dryRun = *req.DryRun
	}

	result, err := s.svc.Execute(c.Request.Context(), &analysis, reconcile.Request{
		BudgetID:          req.BudgetID,
		AccountID:         req.AccountID,
		DryRun:            dryRun,
		AutoCreate:        req.AutoCreate,
		AutoUpdateCleared: req.AutoUpdateCleared,
		AdjustDates:       req.AdjustDates,
	})
	if err != nil {
		if errors.Is(err, reconcile.ErrAlreadyRunning) {
			c.JSON(http.StatusConflict, dto.ConflictError(err.Error()))
			return
		}
		s.logger.Error("execution failed", "account_id", req.AccountID, "error", err)
		c.JSON(http.StatusInternalServerError, dto.InternalError())
		return
	}

	c.JSON(http.StatusOK, result)
}

func externalsFromRequest(rows []dto.ExternalTransactionRequest) ([]txn.External, error) {
	var out []txn.External
	for i, row := range rows {
		date, err := time.Parse(dateLayout, row.Date)
		if err != nil {
			return nil, fmt.Errorf("transactions[%d]: invalid date %q", i, row.Date)
		}
		amount, err := decimal.NewFromString(row.Amount)
		if err != nil {
			return nil, fmt.Errorf("transactions[%d]: invalid amount %q", i, row.Amount)
		}
		id := row.ID
		if id == "" {
			id = fmt.Sprintf("row-%d", i+1)
		}
		out = append(out, txn.External{
			ID:        id,
			Date:      date.UTC(),
			Amount:    amount,
			Payee:     row.Payee,
			Memo:      row.Memo,
			SourceRow: i + 1,
		})
	}
	return out, nil
}

func matchingConfig(req *dto.MatchingConfigRequest) *matcher.Config {
	if req == nil {
		return nil
	}
	cfg := matcher.DefaultConfig()
	if req.DateToleranceDays != nil {
		cfg.DateToleranceDays = *req.DateToleranceDays
	}
	if req.AmountToleranceCents != nil {
		cfg.AmountToleranceCents = *req.AmountToleranceCents
	}
	if req.AutoMatchThreshold != nil {
		cfg.AutoMatchThreshold = *req.AutoMatchThreshold
	}
	if req.SuggestionThreshold != nil {
		cfg.SuggestionThreshold = *req.SuggestionThreshold
	}
	return &cfg
}

func optionalDate(s, field string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %q", field, s)
	}
	t = t.UTC()
	return &t, nil
}
