// Command mediahub-admin inspects and resets the persisted media store
// state in the SQLite database.
//
// Usage:
//
//	mediahub-admin <command>
//
// Commands:
//
//	status      Print the number of persisted media records, the next id
//	            and the profile name.
//
//	reset [-y]  Delete the persisted state. The server seeds the default
//	            dataset on its next start. Asks for confirmation on a
//	            terminal; -y is required otherwise.
//
// Environment:
//
//	DATABASE_DIR - Path to database directory (default: /database)
//
// A .env file in the working directory is loaded first, as the server
// does. Variables already set in the environment win. Neither command
// creates the database when it does not exist.
//
// Stop the server before resetting: a running server keeps its state in
// memory and writes it back on the next mutation.
package main
