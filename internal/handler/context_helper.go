package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-scheduling-api/internal/middleware"
	"github.com/noah-isme/course-scheduling-api/internal/models"
	appErrors "github.com/noah-isme/course-scheduling-api/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	claims, ok := middleware.Claims(c)
	if !ok {
		return nil
	}
	return claims
}

// partyFromPath reads the :kind and :id route parameters.
func partyFromPath(c *gin.Context) (models.Party, error) {
	kind := models.PartyKind(c.Param("kind"))
	if !kind.Valid() {
		return models.Party{}, appErrors.Clone(appErrors.ErrValidation, "party kind must be student or instructor")
	}
	return models.Party{Kind: kind, ID: c.Param("id")}, nil
}

// actingOnSelf rejects students acting on behalf of another student.
func actingOnSelf(c *gin.Context, studentID string) error {
	claims := claimsFromContext(c)
	if claims == nil {
		return appErrors.ErrUnauthorized
	}
	if claims.Role == models.RoleStudent && claims.UserID != studentID {
		return appErrors.Clone(appErrors.ErrForbidden, "students may only manage their own enrollments")
	}
	return nil
}
