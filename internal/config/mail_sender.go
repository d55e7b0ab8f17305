package config

import "fmt"

// MailSender is the configuration of cmd/mail_sender. It reads the same file
// as the API but needs neither signing keys nor databases.
type MailSender struct {
	Env      string `yaml:"env" env:"ENV" env-default:"local"`
	RabbitMQ `yaml:"rabbitmq"`
	Email    `yaml:"email"`
}

func LoadMailSender(configPath string) (*MailSender, error) {
	const op = "config.LoadMailSender"

	var cfg MailSender

	if err := read(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &cfg, nil
}

func MustLoadMailSender() *MailSender {
	cfg, err := LoadMailSender(path())
	if err != nil {
		panic("Failed to read config: " + err.Error())
	}

	return cfg
}
