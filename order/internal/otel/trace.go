package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/plateful/plateful/internal/constants"
)

var Tracer trace.Tracer = otel.Tracer(constants.APP_ORDER_SERVICE)
