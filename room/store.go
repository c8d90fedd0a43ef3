package room

import "context"

// Store persists room records. Implementations must make Insert and Update
// atomic against other writers of the same code, including writers in other
// processes sharing the backing store.
type Store interface {
	// Insert writes a new room and fails with ErrCodeTaken if the code exists.
	Insert(ctx context.Context, r Room) error
	// Get fails with ErrRoomNotFound if the code does not exist.
	Get(ctx context.Context, code string) (Room, error)
	// Update replaces the room only if the stored version still equals
	// prevVersion, otherwise it fails with ErrVersionConflict.
	Update(ctx context.Context, r Room, prevVersion uint64) error
}

type Publisher interface {
	Publish(r Room)
}

type CodeAllocator interface {
	Allocate(try func(code string) (bool, error)) (string, error)
}
