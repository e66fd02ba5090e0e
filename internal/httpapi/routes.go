// Package httpapi implements the aggregator's single HTTP route,
// "/weather.json": GET reads a station or the most recently written
// one, PUT upserts a station, both threading the Lamport clock through
// the X-Lamport-Clock header.
package httpapi

import (
	"log"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weatherfabric/internal/codec"
	"github.com/i474232898/weatherfabric/internal/lamport"
	"github.com/i474232898/weatherfabric/internal/persistence"
	"github.com/i474232898/weatherfabric/internal/store"
)

var validate = validator.New()

// Dependencies are the collaborators the route dispatches into. None of
// them is owned by this package — the caller wires the same instances
// into the scheduler and startup/shutdown code.
type Dependencies struct {
	Store       *store.MemoryStore
	Clock       *lamport.Clock
	Persistence *persistence.Store
}

// RegisterRoutes wires the single "/weather.json" route into app,
// dispatching on method itself (rather than per-method fiber routes)
// because unmatched methods must reply 400 "Bad Request", not fiber's
// default 404.
func RegisterRoutes(app *fiber.App, deps Dependencies) {
	app.All("/weather.json", func(c *fiber.Ctx) error {
		return dispatch(c, deps)
	})
}

func dispatch(c *fiber.Ctx, deps Dependencies) error {
	if header := c.Get("X-Lamport-Clock"); header != "" {
		peer, err := strconv.ParseUint(header, 10, 64)
		if err != nil {
			return sendWithClock(c, deps.Clock, fiber.StatusBadRequest, "Invalid Lamport Clock")
		}
		deps.Clock.Merge(peer)
	}

	switch c.Method() {
	case fiber.MethodGet:
		return handleGet(c, deps)
	case fiber.MethodPut:
		return handlePut(c, deps)
	default:
		return sendWithClock(c, deps.Clock, fiber.StatusBadRequest, "Bad Request")
	}
}

func handleGet(c *fiber.Ctx, deps Dependencies) error {
	var (
		record *codec.Object
		found  bool
	)
	if station := c.Query("station"); station != "" {
		record, found = deps.Store.GetByID(station)
	} else {
		record, found = deps.Store.GetLatest()
	}
	if !found {
		return sendWithClock(c, deps.Clock, fiber.StatusNoContent, "")
	}
	return sendWithClock(c, deps.Clock, fiber.StatusOK, codec.Encode(record))
}

func handlePut(c *fiber.Ctx, deps Dependencies) error {
	contentLength := c.Get("Content-Length")
	if contentLength == "" {
		return sendWithClock(c, deps.Clock, fiber.StatusNoContent, "")
	}
	length, err := strconv.Atoi(contentLength)
	if err != nil {
		return sendWithClock(c, deps.Clock, fiber.StatusBadRequest, "Bad Request")
	}
	if length == 0 {
		return sendWithClock(c, deps.Clock, fiber.StatusNoContent, "")
	}

	record, err := codec.Decode(string(c.Body()))
	if err != nil {
		return sendWithClock(c, deps.Clock, fiber.StatusInternalServerError, "Internal Server Error")
	}

	if err := validateHasID(record); err != nil {
		return sendWithClock(c, deps.Clock, fiber.StatusBadRequest, "Missing 'id' field")
	}

	record.Set("lamportClock", strconv.FormatUint(deps.Clock.Tick(), 10))

	outcome, err := deps.Store.Put(record)
	if err != nil {
		return sendWithClock(c, deps.Clock, fiber.StatusInternalServerError, "Internal Server Error")
	}

	existedBefore := deps.Persistence.Exists()
	if err := deps.Store.PersistWith(deps.Persistence.Flush); err != nil {
		log.Printf("httpapi: persistence flush failed: %v", err)
	}

	status := fiber.StatusOK
	if outcome == store.Created || !existedBefore {
		status = fiber.StatusCreated
	}
	return sendWithClock(c, deps.Clock, status, "Success")
}

// idField is the mandatory-field contract validated with validator/v10,
// the way the teacher's query structs are validated, rather than an ad
// hoc presence check.
type idField struct {
	ID string `validate:"required"`
}

func validateHasID(record *codec.Object) error {
	id, _ := record.Get("id")
	return validate.Struct(idField{ID: id})
}

// sendWithClock ticks the clock for the outbound send event, sets the
// headers every response carries, and writes body with status.
func sendWithClock(c *fiber.Ctx, clock *lamport.Clock, status int, body string) error {
	v := clock.Tick()
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	c.Set("X-Lamport-Clock", strconv.FormatUint(v, 10))
	return c.Status(status).SendString(body)
}
