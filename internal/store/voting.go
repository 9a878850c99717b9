package store

// buildVotingPowerUpsert renders the cache write for a user's reputation
// score. A score obtained from the oracle overwrites any previous row; an
// unknown score inserts 0 only when no row exists yet, so a transient oracle
// failure never clobbers a known value.
func buildVotingPowerUpsert(userAddress string, power int, known bool) (string, []any) {
	q := &queryBuilder{}
	q.write("INSERT INTO voting (user_address, power) VALUES (" + q.bind(userAddress) + ", " + q.bind(power) + ") ON CONFLICT (user_address) ")
	if known {
		q.write("DO UPDATE SET power = " + q.bind(power))
	} else {
		q.write("DO NOTHING")
	}
	return q.query()
}
