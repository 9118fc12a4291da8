// Package authz holds the ownership check shared by every mutating
// operation on owned resources.
package authz

import "github.com/sellergrid/service-core-go/internal/result"

// AuthorizeOwner succeeds only when the requester is the owner of the
// resource. Callers must invoke it before any persistence side effect so no
// partial mutation occurs on the failure path.
func AuthorizeOwner(resourceOwnerID, requesterID string) result.Result[struct{}] {
	if resourceOwnerID == "" || resourceOwnerID != requesterID {
		return result.Failure[struct{}](result.KindUnauthorized, "you are not allowed to modify this resource")
	}
	return result.Success(struct{}{})
}
