/*
Package server provides a JSON HTTP server for the geographical data API.
Handlers take an application-specific state object (used for dependency injection)
and a [Request] object which contains utility functions to decode input and render output.

Basic example:

	func main() {
		cfg, err := config.LoadDefault()
		if err != nil {
			log.Fatal(err)
		}
		srv := server.New(state.New(), cfg)
		srv.AttachDefaultMiddleware()

		srv.Get("/ping", handlers.Ping).
			Get("/records/{id}", GetRecord)

		log.Fatal(srv.Start(context.Background(), nil))
	}

	func GetRecord(request *server.Request, state *state.State) error {
		id, err := request.PathID("id")
		if err != nil {
			return err
		}
		record, err := state.Records.GetByID(request.Context(), id)
		if err != nil {
			return err
		}
		return request.JSON(http.StatusOK, record)
	}
*/
package server
