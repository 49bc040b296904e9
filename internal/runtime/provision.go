package runtime

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/livetemplate/accordion/internal/logging"
	"github.com/livetemplate/accordion/internal/store"
)

// Provisioning constants for lists created from the configuration surface
const (
	ProvisionDescription = "List created by accordion widget"
	DescriptionField     = "Description"
	AlertEmptyListName   = "Please enter a list name."
)

// ProvisionOutcome is what Provision did
type ProvisionOutcome int

const (
	ProvisionInvalid ProvisionOutcome = iota // empty name, nothing called
	ProvisionCreated                         // list and Description field created
	ProvisionExists                          // list already there, nothing changed
	ProvisionFailed                          // a store call failed
)

// ProvisionResult reports the outcome and the alert to show the operator
type ProvisionResult struct {
	Outcome ProvisionOutcome
	Alert   string
	Err     error
}

// Provision makes sure a generic list called name exists with a plain-text
// Description field. An existing list is left untouched.
func Provision(ctx context.Context, s store.Store, name string) ProvisionResult {
	log := logging.Named("provision").With(zap.String("list", name))

	if strings.TrimSpace(name) == "" {
		return ProvisionResult{Outcome: ProvisionInvalid, Alert: AlertEmptyListName}
	}

	_, err := s.GetContainer(ctx, name)
	switch {
	case err == nil:
		log.Info("list already exists")
		return ProvisionResult{Outcome: ProvisionExists, Alert: `List "` + name + `" already exists.`}
	case !store.IsNotFound(err):
		return failed(log, err)
	}

	if err := s.CreateContainer(ctx, name, ProvisionDescription, store.GenericListTemplate); err != nil {
		return failed(log, err)
	}
	if err := s.AddField(ctx, name, store.Field{Name: DescriptionField, RichText: false}); err != nil {
		return failed(log, err)
	}

	log.Info("list created")
	return ProvisionResult{Outcome: ProvisionCreated, Alert: `List "` + name + `" created successfully.`}
}

func failed(log *zap.Logger, err error) ProvisionResult {
	log.Error("provisioning failed", zap.Error(err))
	return ProvisionResult{Outcome: ProvisionFailed, Alert: err.Error(), Err: err}
}
