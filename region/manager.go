package region

// ReclaimFunc is invoked once a region has been superseded (grown past
// or deleted) and its bytes are about to become invalid. force is the
// value passed to ReclaimAll; when it is true the callback should not
// attempt to veto the reclaim by holding readers open.
type ReclaimFunc func(old *Region, force bool) bool

// ReclaimAll deletes every region in olds whose callback approves,
// skipping (not failing) any that refuse when force is false. This is
// the region-side half of the gc_done contract: the table decides
// whether a superseded region is safe to drop — no reader can still be
// dereferencing it — and the manager carries out the drop by unlinking
// its backing file, not just unmapping it, so a rehash doesn't leave
// the previous generation's file orphaned on disk.
func ReclaimAll(olds []*Region, cb ReclaimFunc, force bool) error {
	for _, r := range olds {
		if !cb(r, force) {
			continue
		}
		if err := r.DeleteFile(); err != nil {
			return err
		}
	}
	return nil
}
