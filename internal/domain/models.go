package domain

// Models lists every table owned by the application, in creation order.
func Models() []interface{} {
	return []interface{}{
		&Permission{},
		&Role{},
		&User{},
		&Follow{},
		&Tag{},
		&Photo{},
		&Collect{},
		&Comment{},
		&BackfillRun{},
	}
}
