package gatews

import (
	"context"
	"net/http"
	"net/url"
)

type (
	// GatewayParams is everything needed to dial the gateway endpoint. The URL
	// is usually resolved moments before dialing, as gateways hand out
	// short-lived connection URLs.
	GatewayParams struct {
		URL    url.URL
		Header http.Header
	}

	GatewayParamsGetter func(ctx context.Context) (GatewayParams, error)

	// GatewayParamsRepo resolves dial parameters through an externally supplied
	// getter, typically backed by a REST call against the gateway's discovery
	// endpoint.
	GatewayParamsRepo struct {
		logger Logger
		getter GatewayParamsGetter
	}
)

var NoopGatewayParams = GatewayParams{}

func (r GatewayParamsRepo) Get(
	ctx context.Context,
) (params GatewayParams, err error) {
	params, err = r.getter(ctx)
	if err != nil {
		r.logger.Errorf("cannot fetch gateway params: %s", err)
	}
	return
}

func NewGatewayParamsRepo(
	logger Logger,
	getter GatewayParamsGetter,
) GatewayParamsRepo {
	return GatewayParamsRepo{getter: getter, logger: logger}
}
