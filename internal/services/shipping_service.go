package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/strengthworks/storefront-api/internal/domain"
)

// ErrShippingInvalidInput indicates a missing destination country.
var ErrShippingInvalidInput = errors.New("shipping: invalid input")

type shippingZone struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type shippingZoneLocation struct {
	Code string `json:"code"`
	Type string `json:"type"`
}

type shippingZoneMethod struct {
	InstanceID  int64  `json:"instance_id"`
	MethodID    string `json:"method_id"`
	MethodTitle string `json:"method_title"`
	Enabled     bool   `json:"enabled"`
	Settings    struct {
		Cost struct {
			Value string `json:"value"`
		} `json:"cost"`
	} `json:"settings"`
}

// ShippingServiceDeps wires the dependencies required by the shipping service.
type ShippingServiceDeps struct {
	Gateway  commerceGateway
	Currency string
	Logger   *zap.Logger
	Timeout  time.Duration
}

// ShippingService quotes shipping methods for a destination by fanning out
// over the store's shipping zones concurrently.
type ShippingService struct {
	gateway  commerceGateway
	currency string
	logger   *zap.Logger
	timeout  time.Duration
}

// NewShippingService constructs a ShippingService validating required dependencies.
func NewShippingService(deps ShippingServiceDeps) (*ShippingService, error) {
	if deps.Gateway == nil {
		return nil, errors.New("shipping service: commerce gateway is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	currency := strings.ToUpper(strings.TrimSpace(deps.Currency))
	if currency == "" {
		currency = "EUR"
	}
	timeout := deps.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ShippingService{
		gateway:  deps.Gateway,
		currency: currency,
		logger:   logger,
		timeout:  timeout,
	}, nil
}

// Quote returns every enabled shipping method whose zone covers the country.
// Zone locations and methods are fetched in parallel; any upstream failure
// fails the whole quote, since a partial rate list would silently hide
// shipping options from the customer.
func (s *ShippingService) Quote(ctx context.Context, country string) ([]domain.ShippingRate, error) {
	country = strings.ToUpper(strings.TrimSpace(country))
	if len(country) != 2 {
		return nil, ErrShippingInvalidInput
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var zones []shippingZone
	if err := s.gateway.Get(ctx, "shipping/zones", nil, &zones); err != nil {
		return nil, err
	}

	var (
		mu    sync.Mutex
		rates []domain.ShippingRate
	)

	g, ctx := errgroup.WithContext(ctx)
	for _, zone := range zones {
		zone := zone
		g.Go(func() error {
			covered, err := s.zoneCovers(ctx, zone, country)
			if err != nil {
				return err
			}
			if !covered {
				return nil
			}

			var methods []shippingZoneMethod
			if err := s.gateway.Get(ctx, fmt.Sprintf("shipping/zones/%d/methods", zone.ID), nil, &methods); err != nil {
				return err
			}

			zoneRates := make([]domain.ShippingRate, 0, len(methods))
			for _, method := range methods {
				if !method.Enabled {
					continue
				}
				cost := strings.TrimSpace(method.Settings.Cost.Value)
				if cost == "" {
					cost = "0.00"
				}
				zoneRates = append(zoneRates, domain.ShippingRate{
					MethodID:    method.MethodID,
					MethodTitle: method.MethodTitle,
					ZoneID:      zone.ID,
					Cost:        cost,
					Currency:    s.currency,
				})
			}

			mu.Lock()
			rates = append(rates, zoneRates...)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		s.logger.Warn("shipping quote failed", zap.String("country", country), zap.Error(err))
		return nil, err
	}

	sort.Slice(rates, func(i, j int) bool {
		if rates[i].ZoneID != rates[j].ZoneID {
			return rates[i].ZoneID < rates[j].ZoneID
		}
		return rates[i].MethodID < rates[j].MethodID
	})
	return rates, nil
}

// zoneCovers reports whether the zone's locations include the country. Zone 0
// is WooCommerce's "rest of the world" zone and matches everything.
func (s *ShippingService) zoneCovers(ctx context.Context, zone shippingZone, country string) (bool, error) {
	if zone.ID == 0 {
		return true, nil
	}
	var locations []shippingZoneLocation
	if err := s.gateway.Get(ctx, fmt.Sprintf("shipping/zones/%d/locations", zone.ID), nil, &locations); err != nil {
		return false, err
	}
	for _, loc := range locations {
		switch loc.Type {
		case "country":
			if strings.EqualFold(loc.Code, country) {
				return true, nil
			}
		case "state":
			if code, _, found := strings.Cut(loc.Code, ":"); found && strings.EqualFold(code, country) {
				return true, nil
			}
		}
	}
	return false, nil
}
