package tosc

import "context"

type participantCtxKey struct{}

// withParticipant attaches id as the participant performing the backend
// call carried by ctx, so a ParticipantAware backend can recognize and
// filter out wakeups caused by its own writes.
func withParticipant(ctx context.Context, id uint64) context.Context {
	return context.WithValue(ctx, participantCtxKey{}, id)
}

func participantFromContext(ctx context.Context) (uint64, bool) {
	id, ok := ctx.Value(participantCtxKey{}).(uint64)
	return id, ok
}
