package repository

// WithID filters by the "id" column.
func WithID(id int64) Option {
	return WithCondition("id", id)
}

// WithIDIn filters by the "id" column using IN.
func WithIDIn(ids []int64) Option {
	return WithConditionIn("id", ids)
}

// WithTZPrefix restricts airports to an IANA timezone prefix such as "Asia/".
func WithTZPrefix(prefix string) Option {
	return WithPrefix("tz", prefix)
}

// WithCountry filters by the "country" column.
func WithCountry(country string) Option {
	return WithCondition("country", country)
}
