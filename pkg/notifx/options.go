package notifx

// SendOptions is what providers see after folding a call's options.
type SendOptions struct {
	// Tags end up as SES message tags or console log fields.
	Tags map[string]string
	// ConfigID names the SES configuration set.
	ConfigID string
}

type Option func(*SendOptions)

// WithTags adds tags; a later call wins on duplicate keys.
func WithTags(tags map[string]string) Option {
	return func(o *SendOptions) {
		if len(tags) == 0 {
			return
		}
		if o.Tags == nil {
			o.Tags = map[string]string{}
		}
		for k, v := range tags {
			o.Tags[k] = v
		}
	}
}

func WithConfigID(id string) Option {
	return func(o *SendOptions) { o.ConfigID = id }
}

// ApplySendOptions folds opts in order.
func ApplySendOptions(opts []Option) (so SendOptions) {
	for _, apply := range opts {
		apply(&so)
	}
	return so
}
