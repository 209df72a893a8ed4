package cache

import "time"

const KeyOrder = "orders:%s"

// TTLOrder keeps projections briefly; order status moves on kitchen
// timescales, so a short window is enough to absorb page-level refetch bursts.
const TTLOrder = 30 * time.Second
