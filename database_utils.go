package main

const (
	schema = `
CREATE TABLE IF NOT EXISTS users (
    user_id BIGSERIAL PRIMARY KEY,
    name TEXT NOT NULL,
    email TEXT NOT NULL UNIQUE,
    role TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS subjects (
    subject_id BIGSERIAL PRIMARY KEY,
    name TEXT NOT NULL
);

-- Marks go away with the user or subject they point at
CREATE TABLE IF NOT EXISTS marks (
    mark_id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL REFERENCES users(user_id) ON DELETE CASCADE,
    subject_id BIGINT NOT NULL REFERENCES subjects(subject_id) ON DELETE CASCADE,
    marks NUMERIC NOT NULL
);`

	addExampleData = `
INSERT INTO users(name, email, role) VALUES
    ('ivan', 'ivan@test.com', 'admin'),
    ('maria', 'maria@test.com', 'student'),
    ('georgi', 'georgi@test.com', 'teacher')
ON CONFLICT (email) DO NOTHING;

INSERT INTO subjects(name)
SELECT s.name FROM (VALUES ('Math'), ('Programming Basics')) AS s(name)
WHERE NOT EXISTS (SELECT 1 FROM subjects);

INSERT INTO marks(user_id, subject_id, marks)
SELECT (SELECT user_id FROM users WHERE email='maria@test.com'),
       (SELECT subject_id FROM subjects WHERE name='Math' LIMIT 1),
       56
WHERE NOT EXISTS (SELECT 1 FROM marks);
`
)
