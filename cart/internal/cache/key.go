package cache

// KeyCartState is the fixed snapshot key, one entry per customer. There is no
// version suffix; schema drift is absorbed by recomputing totals on load.
const KeyCartState = "cart-state:%s"
