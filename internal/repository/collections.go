package repository

// Collection names shared by the Mongo store, the change-stream subscriptions
// and the memory store's change hook.
const (
	CollectionProducts      = "products"
	CollectionOrders        = "orders"
	CollectionLeads         = "leads"
	CollectionEvents        = "calendar_events"
	CollectionNotifications = "notifications"
	CollectionCustomers     = "customers"
	CollectionStaff         = "staff"
)

// Change operations reported through ChangeHook.
const (
	OpInsert = "insert"
	OpUpdate = "update"
)

// ChangeHook observes writes to the memory store. updatedFields names the
// fields an update changed, mirroring a change stream's updateDescription.
type ChangeHook func(collection, op string, doc interface{}, updatedFields ...string)
