package services

import (
	"strings"

	"hitloop/contexts/annotation-pipeline/workunit-service/domain/entities"
)

// DefaultPollStatuses are the remote assignment states requested when
// listing submissions for a group.
var DefaultPollStatuses = []string{"Submitted", "Approved", "Rejected"}

// MapRemoteStatus translates a marketplace assignment status into the
// local work-unit status. The mapping is total: unknown or future remote
// states degrade to submitted rather than failing, so a marketplace
// rollout of a new status never breaks a poll cycle.
func MapRemoteStatus(remote string) entities.WorkUnitStatus {
	switch strings.ToLower(strings.TrimSpace(remote)) {
	case "approved":
		return entities.WorkUnitStatusApproved
	case "rejected":
		return entities.WorkUnitStatusRejected
	case "returned":
		return entities.WorkUnitStatusReturned
	case "expired":
		return entities.WorkUnitStatusExpired
	default:
		return entities.WorkUnitStatusSubmitted
	}
}
