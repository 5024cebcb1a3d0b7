package api

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"net/http"

	"github.com/gin-gonic/gin"

	"shortlink/internal/apperr"
	"shortlink/internal/auth"
	"shortlink/internal/qrcode"
	"shortlink/internal/shortener"
)

// Handler exposes shortener operations over HTTP.
type Handler struct {
	svc    *shortener.Service
	health func(context.Context) error
	logger *slog.Logger
}

// NewHandler builds a Handler. health may be nil.
func NewHandler(svc *shortener.Service, health func(context.Context) error, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, health: health, logger: logger}
}

type shortenRequest struct {
	OriginalURL   string   `json:"originalUrl"`
	ExpiresInDays *float64 `json:"expiresInDays"`
	CustomCode    string   `json:"customCode"`
}

// maxExpiryDays keeps the truncated day count well inside int range.
const maxExpiryDays = 1_000_000

// expiryDays truncates a fractional day count toward zero, so 1.5 means one day.
func expiryDays(v *float64) (*int, error) {
	if v == nil {
		return nil, nil
	}
	if *v < 0 || *v > maxExpiryDays {
		return nil, apperr.ErrInvalidExpiry
	}
	days := int(math.Trunc(*v))
	return &days, nil
}

func (h *Handler) HandleShorten(c *gin.Context) {
	var req shortenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.DebugContext(c.Request.Context(), "invalid shorten body", "error", err)
		h.fail(c, apperr.ErrInvalidInput)
		return
	}

	days, err := expiryDays(req.ExpiresInDays)
	if err != nil {
		h.fail(c, err)
		return
	}
	res, err := h.svc.Create(c.Request.Context(), shortener.CreateRequest{
		OriginalURL:   req.OriginalURL,
		ExpiresInDays: days,
		CustomCode:    req.CustomCode,
		OwnerID:       auth.UserID(c.Request.Context()),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) HandleRedirect(c *gin.Context) {
	target, err := h.svc.Redirect(c.Request.Context(), c.Param("shortCode"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Redirect(http.StatusFound, target)
}

func (h *Handler) HandleAnalytics(c *gin.Context) {
	stats, err := h.svc.Analytics(c.Request.Context(), c.Param("shortCode"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) HandleListLinks(c *gin.Context) {
	links, err := h.svc.List(c.Request.Context(), auth.UserID(c.Request.Context()))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(links), "urls": links})
}

func (h *Handler) HandleDelete(c *gin.Context) {
	code := c.Param("shortCode")
	if err := h.svc.Delete(c.Request.Context(), code, auth.UserID(c.Request.Context())); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Short URL deleted successfully", "shortCode": code})
}

func (h *Handler) HandleCacheStats(c *gin.Context) {
	stats, err := h.svc.CacheStats(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) HandleQRCode(c *gin.Context) {
	format, err := qrcode.ParseFormat(c.DefaultQuery("format", "png"))
	if err != nil {
		h.fail(c, err)
		return
	}
	link, err := h.svc.LiveLink(c.Request.Context(), c.Param("shortCode"))
	if err != nil {
		h.fail(c, err)
		return
	}
	shortURL := h.svc.ShortURL(link.ShortCode)

	switch format {
	case qrcode.FormatSVG:
		svg, err := qrcode.SVG(shortURL)
		if err != nil {
			h.fail(c, err)
			return
		}
		c.Data(http.StatusOK, "image/svg+xml", []byte(svg))
	case qrcode.FormatJSON:
		dataURL, err := qrcode.DataURL(shortURL)
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"shortCode": link.ShortCode, "shortUrl": shortURL, "qrCode": dataURL})
	default:
		png, err := qrcode.PNG(shortURL)
		if err != nil {
			h.fail(c, err)
			return
		}
		c.Data(http.StatusOK, "image/png", png)
	}
}

func (h *Handler) HandleHealth(c *gin.Context) {
	if h.health != nil {
		if err := h.health(c.Request.Context()); err != nil {
			h.logger.WarnContext(c.Request.Context(), "health check failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// fail writes err as {"error", "code"}. Internal details are logged, never sent.
func (h *Handler) fail(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(c.Request.Context(), "request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"request_id", c.GetString(requestIDKey),
			"error", err,
		)
	} else {
		var appErr *apperr.AppError
		if errors.As(err, &appErr) {
			h.logger.DebugContext(c.Request.Context(), "request rejected", "code", appErr.Code, "path", c.FullPath())
		}
	}
	c.AbortWithStatusJSON(status, apperr.Public(err))
}
