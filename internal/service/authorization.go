package service

import (
	"context"

	"github.com/jondumad/EcoPulse-Backend/internal/models"
	"github.com/jondumad/EcoPulse-Backend/internal/repository"
	appErrors "github.com/jondumad/EcoPulse-Backend/pkg/errors"
)

// Capabilities resolves what actor may do on mission. It is the single
// authorization check shared by registration and attendance operations.
func Capabilities(ctx context.Context, tx repository.Tx, actor models.Actor, mission *models.Mission) (models.Capability, error) {
	capability := models.Capability{
		IsAdmin:   actor.Role.IsAdmin(),
		IsCreator: mission.CreatedBy != "" && mission.CreatedBy == actor.UserID,
	}
	if capability.IsAdmin || capability.IsCreator || actor.UserID == "" {
		return capability, nil
	}
	ok, err := tx.IsCollaborator(ctx, mission.ID, actor.UserID)
	if err != nil {
		return capability, appErrors.Internal(err, "failed to resolve mission team")
	}
	capability.IsCollaborator = ok
	return capability, nil
}

// requireManager fails with ErrForbidden unless actor coordinates mission.
func requireManager(ctx context.Context, tx repository.Tx, actor models.Actor, mission *models.Mission) error {
	capability, err := Capabilities(ctx, tx, actor, mission)
	if err != nil {
		return err
	}
	if !capability.CanManage() {
		return appErrors.Clone(appErrors.ErrForbidden, "only the mission creator, a collaborator or an admin may do this")
	}
	return nil
}
