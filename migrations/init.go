package migrations

func init() {
	Register(CoreFS())
}
