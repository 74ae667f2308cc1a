package services

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/strengthworks/storefront-api/internal/domain"
	"github.com/strengthworks/storefront-api/internal/platform/pagination"
)

var (
	// ErrCourseInvalidInput indicates a malformed course or certificate reference.
	ErrCourseInvalidInput = errors.New("courses: invalid input")
	// ErrCertificateNotFound indicates no certificate exists for the code.
	ErrCertificateNotFound = errors.New("courses: certificate not found")
)

type courseProduct struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"short_description"`
	Attributes  []struct {
		Name    string   `json:"name"`
		Options []string `json:"options"`
	} `json:"attributes"`
}

// CourseServiceDeps wires the dependencies required by the course service.
type CourseServiceDeps struct {
	Gateway commerceGateway
	// CategoryID is the product category holding the training courses.
	CategoryID int64
	Logger     *zap.Logger
}

// CourseService exposes the training course catalog and certificate lookups.
type CourseService struct {
	gateway    commerceGateway
	categoryID int64
	logger     *zap.Logger
}

// NewCourseService constructs a CourseService validating required dependencies.
func NewCourseService(deps CourseServiceDeps) (*CourseService, error) {
	if deps.Gateway == nil {
		return nil, errors.New("course service: commerce gateway is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{gateway: deps.Gateway, categoryID: deps.CategoryID, logger: logger}, nil
}

// List returns the published courses, sanitised for direct rendering.
func (s *CourseService) List(ctx context.Context, page pagination.Params) ([]domain.Course, error) {
	query := url.Values{"status": {"publish"}}
	if s.categoryID > 0 {
		query.Set("category", strconv.FormatInt(s.categoryID, 10))
	}
	page.Apply(query)

	var products []courseProduct
	if err := s.gateway.Get(ctx, "products", query, &products); err != nil {
		return nil, err
	}

	courses := make([]domain.Course, 0, len(products))
	for _, product := range products {
		course := domain.Course{
			ID:          product.ID,
			Title:       domain.SanitizeText(product.Name),
			Slug:        product.Slug,
			Description: domain.SanitizeText(product.Description),
		}
		for _, attr := range product.Attributes {
			if len(attr.Options) == 0 {
				continue
			}
			switch strings.ToLower(attr.Name) {
			case "duration":
				course.Duration = attr.Options[0]
			case "level":
				course.Level = attr.Options[0]
			}
		}
		courses = append(courses, course)
	}
	return courses, nil
}

// VerifyCertificate looks up a completion certificate by its public code.
func (s *CourseService) VerifyCertificate(ctx context.Context, code string) (domain.Certificate, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return domain.Certificate{}, ErrCourseInvalidInput
	}

	var cert domain.Certificate
	if err := s.gateway.Get(ctx, "certificates/"+url.PathEscape(code), nil, &cert); err != nil {
		return domain.Certificate{}, err
	}
	if cert.Code == "" {
		return domain.Certificate{}, ErrCertificateNotFound
	}
	cert.Course = domain.SanitizeText(cert.Course)
	cert.Holder = domain.SanitizeText(cert.Holder)
	return cert, nil
}
