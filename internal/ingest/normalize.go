package ingest

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/drivebase/catalog-cli/internal/catalog"
	"github.com/drivebase/catalog-cli/internal/classify"
	"github.com/drivebase/catalog-cli/internal/model"
	"github.com/drivebase/catalog-cli/internal/resolve"
	"github.com/drivebase/catalog-cli/internal/store"
)

// ExternalIDPrefix namespaces external ids by source.
const ExternalIDPrefix = "opendatasoft_"

// Model years outside this range are rejected as upstream noise.
const (
	minYear = 1900
	maxYear = 2030
)

// Normalizer turns one raw catalog record into a canonical vehicle, a skip
// decision, or a failure.
type Normalizer struct {
	resolver *resolve.Resolver
}

// NewNormalizer creates a Normalizer over the given resolver.
func NewNormalizer(r *resolve.Resolver) *Normalizer {
	return &Normalizer{resolver: r}
}

// Normalize validates and converts rec. The returned error is non-nil only
// for store-level failures, which poison the page transaction and must abort
// the page; everything else, panics included, is contained in the Result so
// one malformed record can never abort a partition.
func (n *Normalizer) Normalize(ctx context.Context, tx store.PageTx, rec catalog.RawRecord) (res Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			zap.L().Error("panic while normalizing record",
				zap.Any("panic", p),
				zap.Any("record", rec),
				zap.Stack("stack"),
			)
			res = fail(eris.Errorf("normalize: panic: %v", p))
			err = nil
		}
	}()

	makeName, okMake := rec.Make()
	modelName, okModel := rec.Model()
	yearText, okYear := rec.Year()
	if !okMake || !okModel || !okYear {
		return skip(ReasonMissingField), nil
	}

	year, convErr := strconv.Atoi(yearText)
	if convErr != nil || year < minYear || year > maxYear {
		return skip(ReasonInvalidYear), nil
	}

	mk, resolveErr := n.resolver.Make(ctx, tx, makeName)
	if resolveErr != nil {
		if errors.Is(resolveErr, resolve.ErrUnresolvable) {
			return skip(ReasonUnresolvableMake), nil
		}
		return Result{}, resolveErr
	}

	baseModel, _ := rec.BaseModel()
	mdl, resolveErr := n.resolver.Model(ctx, tx, baseModel, mk)
	if resolveErr != nil {
		if errors.Is(resolveErr, resolve.ErrUnresolvable) {
			return skip(ReasonUnresolvableModel), nil
		}
		return Result{}, resolveErr
	}

	fuel, ok := n.resolver.Fuel(rec.FuelText())
	if !ok {
		if fuel, ok = n.resolver.FallbackFuel(); !ok {
			return skip(ReasonNoFallbackFuel), nil
		}
	}

	transmission, ok := n.resolver.Transmission(rec.TransmissionText())
	if !ok {
		if transmission, ok = n.resolver.FallbackTransmission(); !ok {
			return skip(ReasonNoFallbackTransmission), nil
		}
	}

	vclass := rec.VehicleClass()
	drivetrain, _ := classify.Drivetrain(rec.DriveText())
	bodyStyle, _ := classify.BodyStyle(vclass, modelName)

	v := model.Vehicle{
		ExternalID:   externalID(rec, makeName, modelName, year),
		Make:         mk,
		Model:        mdl,
		Year:         year,
		EngineVolume: parseDisplacement(rec.Displacement()),
		BodyStyle:    bodyStyle,
		Drivetrain:   drivetrain,
		Fuel:         fuel,
		Transmission: transmission,
		Seats:        classify.SeatCount(vclass, modelName),
	}
	return success(v), nil
}

// parseDisplacement normalizes engine displacement text to a positive volume
// in liters. Empty, literal "None", non-numeric, and non-positive values all
// normalize to absent; displacement never rejects a record.
func parseDisplacement(text string) *float64 {
	text = strings.TrimSpace(text)
	if text == "" || text == "None" {
		return nil
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil || v <= 0 {
		return nil
	}
	return &v
}

// externalID builds the stable upsert key. When the upstream id is missing
// the key falls back to a make/model/year slug so the records do not all
// collapse onto one shared key.
func externalID(rec catalog.RawRecord, makeName, modelName string, year int) string {
	if id := rec.UpstreamID(); id != "" {
		return ExternalIDPrefix + id
	}
	slug := strings.ToLower(makeName + "-" + modelName + "-" + strconv.Itoa(year))
	return ExternalIDPrefix + strings.ReplaceAll(slug, " ", "-")
}
